package model

import "time"

// Author is the post or comment author snapshot embedded in a resource.
type Author struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Post is the normalized shape of a content-backend post. Title, Excerpt
// and Content hold plain display text derived from the upstream's rendered
// markup; the raw upstream schema never leaks past the adapter.
type Post struct {
	ID            int64     `json:"id"`
	Slug          string    `json:"slug"`
	Status        string    `json:"status"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	Content       string    `json:"content"`
	Date          time.Time `json:"date"`
	Author        Author    `json:"author"`
	FeaturedImage string    `json:"featured_image,omitempty"`
	Categories    []string  `json:"categories,omitempty"` // names, deduplicated
	Tags          []string  `json:"tags,omitempty"`       // names, deduplicated
	CommentCount  int       `json:"comment_count"`
}

// Comment is a normalized comment. ParentID is zero for top-level comments;
// non-zero values reference another comment on the same post, forming a tree.
type Comment struct {
	ID       int64     `json:"id"`
	PostID   int64     `json:"post_id"`
	ParentID int64     `json:"parent_id,omitempty"`
	Author   Author    `json:"author"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
}

// CommentNode is a comment with its resolved replies.
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies,omitempty"`
}

// ThreadComments arranges a flat comment list into a tree by ParentID.
// Comments whose parent is missing from the list are promoted to the top
// level rather than dropped.
func ThreadComments(comments []Comment) []*CommentNode {
	nodes := make(map[int64]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: c}
	}
	var roots []*CommentNode
	for _, c := range comments {
		node := nodes[c.ID]
		if parent, ok := nodes[c.ParentID]; ok && c.ParentID != c.ID {
			parent.Replies = append(parent.Replies, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}

// Term is a category or tag.
type Term struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Media is a normalized media item (uploaded image or attachment).
type Media struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	AltText  string `json:"alt_text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}
