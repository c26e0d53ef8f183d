package model

// User is a denormalized profile snapshot captured at login. It is stored
// alongside the token and never refetched implicitly.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	DisplayName  string          `json:"display_name"`
	Email        string          `json:"email"`
	AvatarURL    string          `json:"avatar_url,omitempty"`
	Roles        []string        `json:"roles,omitempty"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

// HasCapability reports whether the user holds the named capability.
func (u *User) HasCapability(name string) bool {
	return u != nil && u.Capabilities[name]
}

// DefaultCapabilities is the capability set assumed when the profile fetch
// after login fails and only the token response is available. Read access
// is assumed; everything else must be confirmed by a later profile fetch.
func DefaultCapabilities() map[string]bool {
	return map[string]bool{"read": true}
}
