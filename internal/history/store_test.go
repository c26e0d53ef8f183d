package history

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/reportkit/pkg/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleTask(id, tool string, at time.Time) *model.UploadTask {
	return &model.UploadTask{
		ID:         id,
		Tool:       tool,
		Path:       "/tmp/" + id + ".xlsx",
		Name:       id + ".xlsx",
		Size:       2048,
		State:      model.UploadStateProcessed,
		FileID:     "file-" + id,
		ReportFile: "report-" + id + ".html",
		CreatedAt:  at,
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := testStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAppendAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	task := sampleTask("run-1", "html", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err := s.Append(ctx, task); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("record not found")
	}
	if rec.Tool != "html" || rec.FileName != "run-1.xlsx" || rec.Size != 2048 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.State != model.UploadStateProcessed || rec.ReportFile != "report-run-1.html" {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", rec.CreatedAt, task.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatalf("got %+v for missing ID", rec)
	}
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, tool := range []string{"docs", "html", "docs"} {
		task := sampleTask(string(rune('a'+i)), tool, base.Add(time.Duration(i)*time.Hour))
		if err := s.Append(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	docs, err := s.List(ctx, "docs", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("want 2 docs runs, got %d", len(docs))
	}

	limited, err := s.List(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("limit 1 returned %+v", limited)
	}
}

func TestFailedRunKeepsError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	task := sampleTask("bad", "excel", time.Now().UTC())
	task.State = model.UploadStateFailed
	task.ReportFile = ""
	task.Error = "backend returned no report_file"
	if err := s.Append(ctx, task); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Get(ctx, "bad")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != model.UploadStateFailed || rec.Error != "backend returned no report_file" {
		t.Fatalf("record = %+v", rec)
	}
}
