package content

import (
	"html"
	"strings"
	"time"
)

// rendered is the upstream's {rendered: "<p>…</p>"} wrapper.
type rendered struct {
	Rendered string `json:"rendered"`
}

// plainText converts upstream rendered markup into display text: tags are
// stripped, entities decoded, and whitespace collapsed.
func plainText(markup string) string {
	var b strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// upstream timestamps come without a zone ("2024-03-01T10:30:00"); some
// deployments send RFC 3339 instead.
var dateLayouts = []string{"2006-01-02T15:04:05", time.RFC3339}

// parseDate parses an upstream timestamp, returning the zero time when the
// value is absent or unrecognized.
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// pickAvatar selects the largest avatar from the upstream size map.
func pickAvatar(urls map[string]string) string {
	for _, size := range []string{"96", "48", "24"} {
		if u := urls[size]; u != "" {
			return u
		}
	}
	for _, u := range urls {
		return u
	}
	return ""
}
