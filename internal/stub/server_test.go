package stub_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/me/reportkit/internal/content"
	"github.com/me/reportkit/internal/reportgen"
	"github.com/me/reportkit/internal/session"
	"github.com/me/reportkit/internal/stub"
	"github.com/me/reportkit/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStack starts a stub server and wires the real session manager and
// content client against it, the way the CLI does.
func newStack(t *testing.T) (*httptest.Server, *session.Manager, *content.Client) {
	t.Helper()

	srv := httptest.NewServer(stub.New("test-secret", testLogger()))
	t.Cleanup(srv.Close)

	mgr := session.NewManager(srv.URL+"/wp-json/jwt-auth/v1", &session.MemStore{}, testLogger())
	client := content.NewClient(srv.URL, 5*time.Second, mgr, testLogger())
	mgr.SetProfileFetcher(client)
	return srv, mgr, client
}

func TestLoginAgainstStub(t *testing.T) {
	_, mgr, _ := newStack(t)
	ctx := context.Background()

	var apiErr *model.APIError
	if _, err := mgr.Login(ctx, "admin", "wrong"); !errors.As(err, &apiErr) || apiErr.Code != model.ErrForbidden {
		t.Fatalf("bad password: want %s, got %v", model.ErrForbidden, err)
	}

	sess, err := mgr.Login(ctx, "admin", "password")
	if err != nil {
		t.Fatal(err)
	}
	if sess.User.Username != "admin" || sess.User.DisplayName != "Site Admin" {
		t.Fatalf("profile = %+v", sess.User)
	}
	if !sess.User.HasCapability("manage_options") {
		t.Fatalf("administrator missing manage_options: %+v", sess.User.Capabilities)
	}
	if mgr.GetValidToken(ctx) == "" {
		t.Fatal("no token after login")
	}
}

func TestPostLifecycleAgainstStub(t *testing.T) {
	_, mgr, client := newStack(t)
	ctx := context.Background()

	if _, err := mgr.Login(ctx, "admin", "password"); err != nil {
		t.Fatal(err)
	}

	post, err := client.CreatePost(ctx, content.PostInput{
		Title:      "Quarterly Numbers",
		Content:    "Revenue is up.",
		Status:     "publish",
		Categories: []string{"Finance"},
		Tags:       []string{"q3", "Q3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "Quarterly Numbers" || post.Author.Name != "Site Admin" {
		t.Fatalf("post = %+v", post)
	}
	if len(post.Categories) != 1 || post.Categories[0] != "Finance" {
		t.Fatalf("categories = %v", post.Categories)
	}
	if len(post.Tags) != 1 {
		t.Fatalf("duplicate tags survived resolution: %v", post.Tags)
	}

	updated, err := client.UpdatePost(ctx, post.ID, content.PostInput{Title: "Quarterly Numbers (final)"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Quarterly Numbers (final)" {
		t.Fatalf("updated title = %q", updated.Title)
	}
	if updated.Status != "publish" {
		t.Fatalf("update cleared status: %q", updated.Status)
	}

	comment, err := client.CreateComment(ctx, post.ID, 0, "Looks good.")
	if err != nil {
		t.Fatal(err)
	}
	comments, err := client.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 || comments[0].ID != comment.ID {
		t.Fatalf("comments = %+v", comments)
	}

	if err := client.DeletePost(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetPost(ctx, post.ID); !model.IsNotFound(err) {
		t.Fatalf("deleted post still readable: %v", err)
	}
}

func TestReportFlowAgainstStub(t *testing.T) {
	srv, mgr, _ := newStack(t)
	ctx := context.Background()

	if _, err := mgr.Login(ctx, "admin", "password"); err != nil {
		t.Fatal(err)
	}

	input := filepath.Join(t.TempDir(), "numbers.xlsx")
	if err := os.WriteFile(input, bytes.Repeat([]byte{0x50}, 512), 0o600); err != nil {
		t.Fatal(err)
	}

	rc := reportgen.NewClient(reportgen.Slicer(srv.URL+"/svc/slicer"), 5*time.Second, mgr, testLogger())
	task, err := reportgen.NewUploadTask("slicer", input)
	if err != nil {
		t.Fatal(err)
	}

	opts := reportgen.PredictionSpec{Target: "churn", Horizon: 2}.Options()
	if err := rc.Run(ctx, task, opts, nil); err != nil {
		t.Fatal(err)
	}
	if task.State != model.UploadStateProcessed || task.ReportFile == "" {
		t.Fatalf("task = %+v", task)
	}

	html, err := rc.View(ctx, task.FileID, task.ReportFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(html), []byte("slicer report")) {
		t.Fatalf("view output = %q", html)
	}
	if !bytes.Contains([]byte(html), []byte("churn")) {
		t.Fatalf("specification missing from view output: %q", html)
	}

	dest := filepath.Join(t.TempDir(), "report.html")
	if _, err := rc.Download(ctx, task.FileID, task.ReportFile, dest); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatal(err)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	_, _, client := newStack(t)

	_, err := client.ListPosts(context.Background(), content.ListPostsOptions{})
	if !model.IsAuthError(err) {
		t.Fatalf("want auth error, got %v", err)
	}
}
