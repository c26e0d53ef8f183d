package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/me/reportkit/pkg/model"
)

const commentsPath = "/wp-json/wp/v2/comments"

type rawComment struct {
	ID               int64             `json:"id"`
	Post             int64             `json:"post"`
	Parent           int64             `json:"parent"`
	AuthorID         int64             `json:"author"`
	AuthorName       string            `json:"author_name"`
	AuthorAvatarURLs map[string]string `json:"author_avatar_urls"`
	Content          rendered          `json:"content"`
	Date             string            `json:"date"`
}

func formatComment(raw rawComment) model.Comment {
	name := raw.AuthorName
	if name == "" {
		name = "Anonymous"
	}
	return model.Comment{
		ID:       raw.ID,
		PostID:   raw.Post,
		ParentID: raw.Parent,
		Author:   model.Author{ID: raw.AuthorID, Name: name, AvatarURL: pickAvatar(raw.AuthorAvatarURLs)},
		Content:  plainText(raw.Content.Rendered),
		Date:     parseDate(raw.Date),
	}
}

// ListComments returns all comments on a post, flat and ordered as the
// backend returned them. Use model.ThreadComments for the reply tree.
func (c *Client) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	query := url.Values{
		"post":     {strconv.FormatInt(postID, 10)},
		"per_page": {"100"},
	}
	body, err := c.get(ctx, commentsPath, query)
	if err != nil {
		return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	var raws []rawComment
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("parse comments: %w", err)
	}
	comments := make([]model.Comment, 0, len(raws))
	for _, r := range raws {
		comments = append(comments, formatComment(r))
	}
	return comments, nil
}

// CreateComment posts a comment. parentID is zero for a top-level comment.
func (c *Client) CreateComment(ctx context.Context, postID, parentID int64, text string) (*model.Comment, error) {
	if text == "" {
		return nil, model.NewValidationError("comment content is required")
	}
	payload := map[string]any{
		"post":    postID,
		"content": text,
	}
	if parentID != 0 {
		payload["parent"] = parentID
	}
	body, err := c.send(ctx, "POST", commentsPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	var raw rawComment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse created comment: %w", err)
	}
	comment := formatComment(raw)
	return &comment, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	query := url.Values{"force": {"true"}}
	if _, err := c.send(ctx, "DELETE", fmt.Sprintf("%s/%d", commentsPath, id), query, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}
