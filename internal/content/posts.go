package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/me/reportkit/pkg/model"
)

const postsPath = "/wp-json/wp/v2/posts"

// rawPost is the upstream post schema, including optional embedded data.
type rawPost struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Status   string   `json:"status"`
	Date     string   `json:"date"`
	Title    rendered `json:"title"`
	Excerpt  rendered `json:"excerpt"`
	Content  rendered `json:"content"`
	Author   int64    `json:"author"`
	Embedded struct {
		Author []struct {
			ID         int64             `json:"id"`
			Name       string            `json:"name"`
			AvatarURLs map[string]string `json:"avatar_urls"`
		} `json:"author"`
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
		Terms [][]struct {
			Name     string `json:"name"`
			Taxonomy string `json:"taxonomy"`
		} `json:"wp:term"`
	} `json:"_embedded"`
}

// formatPost reshapes an upstream post into the normalized envelope.
// Embedded author, featured image, and term data are all optional; missing
// pieces get documented defaults instead of failing the whole resource.
func formatPost(raw rawPost) *model.Post {
	post := &model.Post{
		ID:      raw.ID,
		Slug:    raw.Slug,
		Status:  raw.Status,
		Title:   plainText(raw.Title.Rendered),
		Excerpt: plainText(raw.Excerpt.Rendered),
		Content: plainText(raw.Content.Rendered),
		Date:    parseDate(raw.Date),
		Author:  model.Author{ID: raw.Author, Name: "Unknown"},
	}

	if len(raw.Embedded.Author) > 0 {
		a := raw.Embedded.Author[0]
		post.Author = model.Author{ID: a.ID, Name: a.Name, AvatarURL: pickAvatar(a.AvatarURLs)}
	}
	if len(raw.Embedded.FeaturedMedia) > 0 {
		post.FeaturedImage = raw.Embedded.FeaturedMedia[0].SourceURL
	}

	seen := map[string]bool{}
	for _, group := range raw.Embedded.Terms {
		for _, term := range group {
			key := term.Taxonomy + "\x00" + term.Name
			if term.Name == "" || seen[key] {
				continue
			}
			seen[key] = true
			switch term.Taxonomy {
			case "category":
				post.Categories = append(post.Categories, term.Name)
			case "post_tag":
				post.Tags = append(post.Tags, term.Name)
			}
		}
	}

	return post
}

// ListPostsOptions filters post listings.
type ListPostsOptions struct {
	Search  string
	Page    int
	PerPage int
}

// ListPosts returns published posts with embedded author and term data
// already folded into the envelope.
func (c *Client) ListPosts(ctx context.Context, opts ListPostsOptions) ([]*model.Post, error) {
	query := url.Values{"_embed": {"1"}}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	body, err := c.get(ctx, postsPath, query)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	var raws []rawPost
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("parse posts: %w", err)
	}

	posts := make([]*model.Post, 0, len(raws))
	for _, r := range raws {
		posts = append(posts, formatPost(r))
	}
	return posts, nil
}

// GetPost fetches one post by ID.
func (c *Client) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%d", postsPath, id), url.Values{"_embed": {"1"}})
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	var raw rawPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse post: %w", err)
	}
	return formatPost(raw), nil
}

// PostInput holds the writable fields of a post. Categories and Tags are
// human-entered names; the adapter resolves them to upstream identifiers.
type PostInput struct {
	Title           string
	Content         string
	Excerpt         string
	Status          string // "publish" or "draft"; empty defaults upstream
	Categories      []string
	Tags            []string
	FeaturedMediaID int64
}

// CreatePost resolves category and tag names, then creates the post.
func (c *Client) CreatePost(ctx context.Context, input PostInput) (*model.Post, error) {
	payload := c.postPayload(ctx, input)

	body, err := c.send(ctx, "POST", postsPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	var raw rawPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse created post: %w", err)
	}
	return formatPost(raw), nil
}

// UpdatePost applies input to an existing post.
func (c *Client) UpdatePost(ctx context.Context, id int64, input PostInput) (*model.Post, error) {
	payload := c.postPayload(ctx, input)

	body, err := c.send(ctx, "PUT", fmt.Sprintf("%s/%d", postsPath, id), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	var raw rawPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse updated post: %w", err)
	}
	return formatPost(raw), nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	query := url.Values{"force": {"true"}}
	if _, err := c.send(ctx, "DELETE", fmt.Sprintf("%s/%d", postsPath, id), query, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func (c *Client) postPayload(ctx context.Context, input PostInput) map[string]any {
	payload := map[string]any{}
	if input.Title != "" {
		payload["title"] = input.Title
	}
	if input.Content != "" {
		payload["content"] = input.Content
	}
	if input.Excerpt != "" {
		payload["excerpt"] = input.Excerpt
	}
	if input.Status != "" {
		payload["status"] = input.Status
	}
	if len(input.Categories) > 0 {
		payload["categories"] = c.ResolveCategories(ctx, input.Categories)
	}
	if len(input.Tags) > 0 {
		payload["tags"] = c.ResolveTags(ctx, input.Tags)
	}
	if input.FeaturedMediaID != 0 {
		payload["featured_media"] = input.FeaturedMediaID
	}
	return payload
}
