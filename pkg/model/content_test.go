package model

import "testing"

func TestThreadComments(t *testing.T) {
	comments := []Comment{
		{ID: 1, PostID: 10},
		{ID: 2, PostID: 10, ParentID: 1},
		{ID: 3, PostID: 10, ParentID: 1},
		{ID: 4, PostID: 10, ParentID: 2},
		{ID: 5, PostID: 10},
	}

	roots := ThreadComments(comments)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].ID != 1 || roots[1].ID != 5 {
		t.Errorf("root IDs = %d, %d; want 1, 5", roots[0].ID, roots[1].ID)
	}
	if len(roots[0].Replies) != 2 {
		t.Fatalf("comment 1 has %d replies, want 2", len(roots[0].Replies))
	}
	if len(roots[0].Replies[0].Replies) != 1 {
		t.Errorf("comment 2 has %d replies, want 1", len(roots[0].Replies[0].Replies))
	}
}

func TestThreadComments_MissingParent(t *testing.T) {
	// A reply whose parent was deleted is promoted to the top level.
	comments := []Comment{
		{ID: 7, PostID: 10, ParentID: 99},
	}
	roots := ThreadComments(comments)
	if len(roots) != 1 || roots[0].ID != 7 {
		t.Fatalf("orphaned comment should be a root, got %+v", roots)
	}
}

func TestSession_Valid(t *testing.T) {
	tests := []struct {
		name string
		sess *Session
		want bool
	}{
		{"nil", nil, false},
		{"empty", &Session{}, false},
		{"token only", &Session{Token: "t"}, false},
		{"user only", &Session{User: &User{ID: 1}}, false},
		{"both", &Session{Token: "t", User: &User{ID: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_HasCapability(t *testing.T) {
	u := &User{Capabilities: map[string]bool{"edit_posts": true}}
	if !u.HasCapability("edit_posts") {
		t.Error("expected edit_posts capability")
	}
	if u.HasCapability("manage_options") {
		t.Error("unexpected manage_options capability")
	}
	var nilUser *User
	if nilUser.HasCapability("read") {
		t.Error("nil user should have no capabilities")
	}
}
