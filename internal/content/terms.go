package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/me/reportkit/pkg/model"
)

// DefaultCategoryID is the backend's built-in "uncategorized" term, used
// when a category can neither be found nor created. Posts always need at
// least one category; tags are optional.
const DefaultCategoryID int64 = 1

type rawTerm struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// ResolveCategories maps human-entered category names to upstream IDs.
// Each name is matched case-insensitively against existing categories and
// only created when no match exists. A category that cannot be resolved at
// all falls back to DefaultCategoryID rather than failing the parent
// operation.
func (c *Client) ResolveCategories(ctx context.Context, names []string) []int64 {
	var ids []int64
	for _, name := range dedupeFold(names) {
		id, err := c.resolveTerm(ctx, "categories", name)
		if err != nil {
			c.logger.Warn("category resolution failed, using default", "name", name, "error", err)
			id = DefaultCategoryID
		}
		ids = append(ids, id)
	}
	return dedupeIDs(ids)
}

// ResolveTags maps tag names to upstream IDs the same way as categories,
// except that a tag that cannot be resolved is skipped silently: tags are
// decoration, not structure.
func (c *Client) ResolveTags(ctx context.Context, names []string) []int64 {
	var ids []int64
	for _, name := range dedupeFold(names) {
		id, err := c.resolveTerm(ctx, "tags", name)
		if err != nil {
			c.logger.Warn("skipping unresolvable tag", "name", name, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return dedupeIDs(ids)
}

// resolveTerm finds an existing term by case-insensitive exact name match,
// creating it only when absent. A not-found search result is expected
// control flow here, not an error.
func (c *Client) resolveTerm(ctx context.Context, taxonomy, name string) (int64, error) {
	path := "/wp-json/wp/v2/" + taxonomy
	query := url.Values{"search": {name}, "per_page": {"100"}}

	body, err := c.get(ctx, path, query)
	if err != nil {
		return 0, err
	}
	var terms []rawTerm
	if err := json.Unmarshal(body, &terms); err != nil {
		return 0, fmt.Errorf("parse %s: %w", taxonomy, err)
	}
	for _, t := range terms {
		if strings.EqualFold(t.Name, name) {
			return t.ID, nil
		}
	}

	created, err := c.send(ctx, "POST", path, nil, map[string]string{"name": name})
	if err != nil {
		return 0, err
	}
	var term rawTerm
	if err := json.Unmarshal(created, &term); err != nil {
		return 0, fmt.Errorf("parse created term: %w", err)
	}
	return term.ID, nil
}

// ListCategories returns all categories.
func (c *Client) ListCategories(ctx context.Context) ([]model.Term, error) {
	return c.listTerms(ctx, "categories")
}

// ListTags returns all tags.
func (c *Client) ListTags(ctx context.Context) ([]model.Term, error) {
	return c.listTerms(ctx, "tags")
}

func (c *Client) listTerms(ctx context.Context, taxonomy string) ([]model.Term, error) {
	body, err := c.get(ctx, "/wp-json/wp/v2/"+taxonomy, url.Values{"per_page": {"100"}})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", taxonomy, err)
	}
	var raws []rawTerm
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("parse %s: %w", taxonomy, err)
	}
	terms := make([]model.Term, 0, len(raws))
	for _, r := range raws {
		terms = append(terms, model.Term{ID: r.ID, Name: r.Name, Slug: r.Slug, Count: r.Count})
	}
	return terms, nil
}

// dedupeFold removes case-insensitive duplicates, keeping the first
// spelling of each name.
func dedupeFold(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func dedupeIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
