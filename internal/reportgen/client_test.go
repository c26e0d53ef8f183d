package reportgen

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/reportkit/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTokens struct {
	token       string
	invalidated atomic.Int64
}

func (f *fakeTokens) GetValidToken(context.Context) string { return f.token }
func (f *fakeTokens) Invalidate()                          { f.invalidated.Add(1) }

// backendServer fakes one report-generation service and counts requests.
type backendServer struct {
	srv      *httptest.Server
	requests atomic.Int64
	uploads  atomic.Int64
	authHdr  string
}

func newBackendServer(t *testing.T) *backendServer {
	t.Helper()
	bs := &backendServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		bs.requests.Add(1)
		bs.uploads.Add(1)
		bs.authHdr = r.Header.Get("Authorization")
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, `{"message":"missing file part"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"file_id":"f-123"}`))
	})
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, r *http.Request) {
		bs.requests.Add(1)
		w.Write([]byte(`{"report_file":"report-f-123.html"}`))
	})
	mux.HandleFunc("GET /download", func(w http.ResponseWriter, r *http.Request) {
		bs.requests.Add(1)
		w.Write([]byte("report-bytes"))
	})
	mux.HandleFunc("GET /view", func(w http.ResponseWriter, r *http.Request) {
		bs.requests.Add(1)
		w.Write([]byte("<html>report</html>"))
	})

	bs.srv = httptest.NewServer(mux)
	t.Cleanup(bs.srv.Close)
	return bs
}

func newTestClient(t *testing.T, backend Backend, tokens TokenSource) *Client {
	t.Helper()
	return NewClient(backend, 5*time.Second, tokens, testLogger())
}

func writeWorkbook(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x50}, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateReportFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr bool
	}{
		{"xlsx ok", "monthly.xlsx", 1024, false},
		{"uppercase extension ok", "MONTHLY.XLSX", 1024, false},
		{"at size limit ok", "big.xlsx", MaxReportFileSize, false},
		{"csv rejected", "monthly.csv", 1024, true},
		{"no extension rejected", "monthly", 1024, true},
		{"oversized rejected", "huge.xlsx", MaxReportFileSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportFile(tt.file, tt.size)
			if tt.wantErr {
				if !model.IsValidation(err) {
					t.Fatalf("want validation error, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewUploadTaskRejectsBadInputWithoutRequests(t *testing.T) {
	bs := newBackendServer(t)
	path := writeWorkbook(t, "input.csv", 64)

	_, err := NewUploadTask("docs", path)
	if !model.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	if got := bs.requests.Load(); got != 0 {
		t.Fatalf("validation failure reached the backend: %d requests", got)
	}
}

func TestRunUploadsThenGenerates(t *testing.T) {
	bs := newBackendServer(t)
	tokens := &fakeTokens{token: "tok-1"}
	c := newTestClient(t, HTML(bs.srv.URL), tokens)

	task, err := NewUploadTask("html", writeWorkbook(t, "input.xlsx", 4096))
	if err != nil {
		t.Fatal(err)
	}

	var pcts []int
	if err := c.Run(context.Background(), task, nil, func(p int) { pcts = append(pcts, p) }); err != nil {
		t.Fatal(err)
	}

	if task.State != model.UploadStateProcessed {
		t.Fatalf("state = %s, want %s", task.State, model.UploadStateProcessed)
	}
	if task.FileID != "f-123" || task.ReportFile != "report-f-123.html" {
		t.Fatalf("file_id=%q report_file=%q", task.FileID, task.ReportFile)
	}
	if bs.authHdr != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", bs.authHdr)
	}

	if len(pcts) == 0 || pcts[len(pcts)-1] != 100 {
		t.Fatalf("progress did not finish at 100: %v", pcts)
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] <= pcts[i-1] {
			t.Fatalf("progress not strictly increasing at %d: %v", i, pcts)
		}
	}
}

func TestGenerateRequiresCompletedUpload(t *testing.T) {
	bs := newBackendServer(t)
	c := newTestClient(t, Docs(bs.srv.URL), &fakeTokens{token: "tok"})

	task, err := NewUploadTask("docs", writeWorkbook(t, "input.xlsx", 64))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Generate(context.Background(), task, nil); err == nil {
		t.Fatal("generate on a pending task succeeded")
	}
	if task.State != model.UploadStateFailed {
		t.Fatalf("state = %s, want %s", task.State, model.UploadStateFailed)
	}
	if got := bs.requests.Load(); got != 0 {
		t.Fatalf("generate reached the backend: %d requests", got)
	}
}

func TestUploadFailureMarksTaskFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"converter crashed"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Docs(srv.URL), &fakeTokens{token: "tok"})
	task, err := NewUploadTask("docs", writeWorkbook(t, "input.xlsx", 64))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Upload(context.Background(), task, nil); err == nil {
		t.Fatal("upload against failing backend succeeded")
	}
	if task.State != model.UploadStateFailed {
		t.Fatalf("state = %s, want %s", task.State, model.UploadStateFailed)
	}
	if !strings.Contains(task.Error, "converter crashed") {
		t.Fatalf("task error lost the backend message: %q", task.Error)
	}
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"jwt_auth_invalid_token","message":"Expired token"}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	c := newTestClient(t, HTML(srv.URL), tokens)

	_, err := c.View(context.Background(), "f-1", "report.html")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrUnauthorized {
		t.Fatalf("want UNAUTHORIZED, got %v", err)
	}
	if got := tokens.invalidated.Load(); got != 1 {
		t.Fatalf("Invalidate called %d times, want 1", got)
	}
}

func TestViewUnsupportedBackend(t *testing.T) {
	bs := newBackendServer(t)
	for _, backend := range []Backend{Docs(bs.srv.URL), Excel(bs.srv.URL)} {
		c := newTestClient(t, backend, &fakeTokens{token: "tok"})
		if _, err := c.View(context.Background(), "f-1", "r.html"); !model.IsValidation(err) {
			t.Fatalf("%s: want validation error, got %v", backend.Name, err)
		}
	}
	if got := bs.requests.Load(); got != 0 {
		t.Fatalf("unsupported view reached the backend: %d requests", got)
	}
}

func TestDownloadWritesReport(t *testing.T) {
	bs := newBackendServer(t)
	c := newTestClient(t, Excel(bs.srv.URL), &fakeTokens{token: "tok"})

	dest := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := c.Download(context.Background(), "f-123", "report-f-123.xlsx", dest)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "report-bytes" || n != int64(len(data)) {
		t.Fatalf("downloaded %d bytes %q", n, data)
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		probability float64
		want        string
	}{
		{0.10, "high"},
		{0.70, "high"},
		{0.71, "low"},
		{0.99, "low"},
	}
	for _, tt := range tests {
		if got := RiskLevel(tt.probability); got != tt.want {
			t.Errorf("RiskLevel(%v) = %q, want %q", tt.probability, got, tt.want)
		}
	}
}

func TestPredictionSpecOptions(t *testing.T) {
	if got := (PredictionSpec{}).Options(); got != nil {
		t.Fatalf("empty specification produced options: %v", got)
	}
	opts := PredictionSpec{Target: "churn", Horizon: 3}.Options()
	spec, ok := opts["specification"].(map[string]any)
	if !ok {
		t.Fatalf("options missing specification: %v", opts)
	}
	if spec["target"] != "churn" || spec["horizon"] != 3 {
		t.Fatalf("specification = %v", spec)
	}
}
