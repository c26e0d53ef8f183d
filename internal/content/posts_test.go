package content

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

func TestFormatPost_FullEmbedded(t *testing.T) {
	payload := `{
		"id": 42,
		"slug": "hello-world",
		"status": "publish",
		"date": "2024-03-01T10:30:00",
		"title": {"rendered": "Hello &amp; Welcome"},
		"excerpt": {"rendered": "<p>Short version.</p>"},
		"content": {"rendered": "<p>First.</p>\n<p>Second.</p>"},
		"author": 2,
		"_embedded": {
			"author": [{"id": 2, "name": "Alice", "avatar_urls": {"96": "https://img/96.png", "48": "https://img/48.png"}}],
			"wp:featuredmedia": [{"source_url": "https://img/featured.jpg"}],
			"wp:term": [
				[{"name": "Tech", "taxonomy": "category"}, {"name": "Tech", "taxonomy": "category"}],
				[{"name": "go", "taxonomy": "post_tag"}, {"name": "http", "taxonomy": "post_tag"}]
			]
		}
	}`
	var raw rawPost
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatal(err)
	}

	post := formatPost(raw)

	if post.Title != "Hello & Welcome" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Content != "First. Second." {
		t.Errorf("Content = %q", post.Content)
	}
	if post.Author.Name != "Alice" || post.Author.AvatarURL != "https://img/96.png" {
		t.Errorf("Author = %+v", post.Author)
	}
	if post.FeaturedImage != "https://img/featured.jpg" {
		t.Errorf("FeaturedImage = %q", post.FeaturedImage)
	}
	if !reflect.DeepEqual(post.Categories, []string{"Tech"}) {
		t.Errorf("Categories = %v, want deduplicated [Tech]", post.Categories)
	}
	if !reflect.DeepEqual(post.Tags, []string{"go", "http"}) {
		t.Errorf("Tags = %v", post.Tags)
	}
	if post.Date.IsZero() {
		t.Error("Date should parse")
	}
}

func TestFormatPost_MissingEmbedded_UsesDefaults(t *testing.T) {
	payload := `{
		"id": 7,
		"slug": "bare",
		"status": "draft",
		"title": {"rendered": "Bare"},
		"author": 3
	}`
	var raw rawPost
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatal(err)
	}

	post := formatPost(raw)

	if post.Author.Name != "Unknown" || post.Author.ID != 3 {
		t.Errorf("Author = %+v, want Unknown/3 default", post.Author)
	}
	if post.FeaturedImage != "" {
		t.Errorf("FeaturedImage = %q, want empty", post.FeaturedImage)
	}
	if post.Categories != nil || post.Tags != nil {
		t.Errorf("terms should be empty, got %v / %v", post.Categories, post.Tags)
	}
}

func TestListPosts_QueryAndShaping(t *testing.T) {
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"id": 1, "title": {"rendered": "One"}, "author": 2},
			{"id": 2, "title": {"rendered": "Two"}, "author": 2}
		]`))
	})
	c := newTestClient(t, handler, nil)

	posts, err := c.ListPosts(context.Background(), ListPostsOptions{Search: "report", PerPage: 10})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts", len(posts))
	}
	if posts[0].Title != "One" {
		t.Errorf("Title = %q", posts[0].Title)
	}
	for _, want := range []string{"_embed=1", "search=report", "per_page=10"} {
		if !containsParam(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func containsParam(query, param string) bool {
	for _, p := range strings.Split(query, "&") {
		if p == param {
			return true
		}
	}
	return false
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<p>a</p>\n<p>b</p>", "a b"},
		{"Fish &amp; Chips", "Fish & Chips"},
		{"", ""},
		{"no markup", "no markup"},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
