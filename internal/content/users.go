package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/me/reportkit/pkg/model"
)

const usersPath = "/wp-json/wp/v2/users"

type rawUser struct {
	ID           int64             `json:"id"`
	Username     string            `json:"username"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Email        string            `json:"email"`
	AvatarURLs   map[string]string `json:"avatar_urls"`
	Roles        []string          `json:"roles"`
	Capabilities map[string]bool   `json:"capabilities"`
}

func formatUser(raw rawUser) *model.User {
	username := raw.Username
	if username == "" {
		username = raw.Slug
	}
	caps := raw.Capabilities
	if caps == nil {
		caps = model.DefaultCapabilities()
	}
	return &model.User{
		ID:           raw.ID,
		Username:     username,
		DisplayName:  raw.Name,
		Email:        raw.Email,
		AvatarURL:    pickAvatar(raw.AvatarURLs),
		Roles:        raw.Roles,
		Capabilities: caps,
	}
}

// FetchProfile retrieves the caller's own profile with an explicit token.
// The session manager uses it right after login, before a session exists,
// which is why the token is a parameter instead of coming from the
// TokenSource.
func (c *Client) FetchProfile(ctx context.Context, token string) (*model.User, error) {
	query := url.Values{"context": {"edit"}}
	body, err := c.sendRaw(ctx, "GET", usersPath+"/me", query, "", nil, nil, token)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	var raw rawUser
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return formatUser(raw), nil
}

// UserInput holds the fields for creating a user.
type UserInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser creates a user, then attempts a welcome notification. The
// notification is best-effort: its failure is logged and never aborts the
// creation that already succeeded.
func (c *Client) CreateUser(ctx context.Context, input UserInput) (*model.User, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, model.NewValidationError("username, email, and password are required")
	}
	payload := map[string]any{
		"username": input.Username,
		"email":    input.Email,
		"password": input.Password,
	}
	if input.Role != "" {
		payload["roles"] = []string{input.Role}
	}

	body, err := c.send(ctx, "POST", usersPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	var raw rawUser
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse created user: %w", err)
	}
	user := formatUser(raw)

	welcomePath := fmt.Sprintf("/wp-json/reportkit/v1/users/%d/welcome", user.ID)
	if _, err := c.send(ctx, "POST", welcomePath, nil, nil); err != nil {
		c.logger.Warn("welcome notification failed", "user", user.Username, "error", err)
	}

	return user, nil
}
