package reportgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/me/reportkit/pkg/model"
)

const (
	// ReportFileExt is the only input format the generation backends accept.
	ReportFileExt = ".xlsx"

	// MaxReportFileSize caps input workbooks at 10 MiB.
	MaxReportFileSize = 10 << 20
)

// TokenSource supplies bearer tokens for backend requests and is told when
// a token was rejected.
type TokenSource interface {
	GetValidToken(ctx context.Context) string
	Invalidate()
}

// Client talks to a single report-generation backend.
type Client struct {
	backend    Backend
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// NewClient returns a client for the given backend. Requests other than
// generation use the supplied timeout; generation uses the backend's own.
func NewClient(backend Backend, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		backend:    backend,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger.With("component", "reportgen", "backend", backend.Name),
	}
}

// Backend returns the backend this client is bound to.
func (c *Client) Backend() Backend {
	return c.backend
}

// ValidateReportFile rejects inputs the backends cannot process: anything
// that is not an .xlsx workbook, or one larger than MaxReportFileSize.
func ValidateReportFile(name string, size int64) error {
	if !strings.EqualFold(filepath.Ext(name), ReportFileExt) {
		return model.NewValidationError("unsupported file type %q: report input must be an %s workbook", filepath.Ext(name), ReportFileExt)
	}
	if size > MaxReportFileSize {
		return model.NewValidationError("file is %s, which exceeds the %s limit", humanize.Bytes(uint64(size)), humanize.Bytes(uint64(MaxReportFileSize)))
	}
	return nil
}

// NewUploadTask stats and validates the file at path and returns a pending
// task for it. No request is made; validation failures never reach the
// backend.
func NewUploadTask(tool, path string) (*model.UploadTask, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat report input: %w", err)
	}
	if err := ValidateReportFile(info.Name(), info.Size()); err != nil {
		return nil, err
	}
	return &model.UploadTask{
		ID:        uuid.NewString(),
		Tool:      tool,
		Path:      path,
		Name:      info.Name(),
		Size:      info.Size(),
		State:     model.UploadStatePending,
		CreatedAt: time.Now(),
	}, nil
}

// failTask sinks the task into its failed state and passes the error
// through unchanged.
func failTask(task *model.UploadTask, err error) error {
	task.Fail(err.Error())
	return err
}

type uploadResponse struct {
	FileID string `json:"file_id"`
}

// Upload sends the task's file as a multipart request and records the
// returned file ID. On success the task moves to PROCESSING; on any
// failure it is marked failed.
func (c *Client) Upload(ctx context.Context, task *model.UploadTask, progress ProgressFunc) error {
	if task.State != model.UploadStatePending {
		return failTask(task, fmt.Errorf("upload requires a pending task, not %s", task.State))
	}

	data, err := os.ReadFile(task.Path)
	if err != nil {
		return failTask(task, fmt.Errorf("read report input: %w", err))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(c.backend.FileField, task.Name)
	if err != nil {
		return failTask(task, fmt.Errorf("build upload request: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return failTask(task, fmt.Errorf("build upload request: %w", err))
	}
	if err := mw.Close(); err != nil {
		return failTask(task, fmt.Errorf("build upload request: %w", err))
	}

	body := newProgressReader(&buf, int64(buf.Len()), progress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backend.BaseURL+c.backend.UploadPath, body)
	if err != nil {
		return failTask(task, fmt.Errorf("build upload request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = int64(buf.Len())

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return failTask(task, err)
	}
	if resp.FileID == "" {
		return failTask(task, fmt.Errorf("backend returned no file_id"))
	}

	task.FileID = resp.FileID
	if err := task.Transition(model.UploadStateProcessing); err != nil {
		return err
	}
	c.logger.Info("uploaded report input", "file_id", task.FileID, "name", task.Name, "size", task.Size)
	return nil
}

// Generate runs report generation for an uploaded task. The call blocks
// until the backend has produced the report; there is no polling. Extra
// generation options (the slicer's prediction specification) are merged
// into the request payload.
func (c *Client) Generate(ctx context.Context, task *model.UploadTask, opts map[string]any) error {
	if task.State != model.UploadStateProcessing {
		return failTask(task, fmt.Errorf("generate requires an uploaded task, not %s", task.State))
	}

	payload := map[string]any{"file_id": task.FileID}
	for k, v := range opts {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return failTask(task, fmt.Errorf("encode generate request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.backend.GenerateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backend.BaseURL+c.backend.GeneratePath, bytes.NewReader(raw))
	if err != nil {
		return failTask(task, fmt.Errorf("build generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	var resp map[string]any
	if err := c.do(req, &resp); err != nil {
		return failTask(task, err)
	}
	report, _ := resp[c.backend.ReportField].(string)
	if report == "" {
		return failTask(task, fmt.Errorf("backend returned no %s", c.backend.ReportField))
	}

	task.ReportFile = report
	if err := task.Transition(model.UploadStateProcessed); err != nil {
		return err
	}
	c.logger.Info("generated report", "file_id", task.FileID, "report_file", task.ReportFile)
	return nil
}

// Run uploads and then generates. Generation never starts unless the
// upload completed and returned a file ID.
func (c *Client) Run(ctx context.Context, task *model.UploadTask, opts map[string]any, progress ProgressFunc) error {
	if err := c.Upload(ctx, task, progress); err != nil {
		return err
	}
	return c.Generate(ctx, task, opts)
}

// Download streams a finished report to destPath and returns the number of
// bytes written.
func (c *Client) Download(ctx context.Context, fileID, reportFile, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reportURL(c.backend.DownloadPath, fileID, reportFile), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create report file: %w", err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write report file: %w", err)
	}
	c.logger.Info("downloaded report", "file_id", fileID, "report_file", reportFile, "bytes", n)
	return n, nil
}

// View fetches the rendered form of a finished report. Backends without a
// view route reject the call before any request is made.
func (c *Client) View(ctx context.Context, fileID, reportFile string) (string, error) {
	if !c.backend.SupportsView() {
		return "", model.NewValidationError("the %s backend does not support viewing reports", c.backend.Name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reportURL(c.backend.ViewPath, fileID, reportFile), nil)
	if err != nil {
		return "", fmt.Errorf("build view request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewNetworkError(err)
	}
	return string(data), nil
}

func (c *Client) reportURL(path, fileID, reportFile string) string {
	q := url.Values{}
	q.Set("file_id", fileID)
	q.Set("filename", reportFile)
	return c.backend.BaseURL + path + "?" + q.Encode()
}

// do sends the request and decodes a JSON response body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewNetworkError(fmt.Errorf("decode %s response: %w", c.backend.Name, err))
	}
	return nil
}

// send is the single choke point for backend requests: it injects the
// bearer token, normalizes failures into APIErrors, and invalidates the
// session when the backend rejects its token.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	token := c.tokens.GetValidToken(req.Context())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		apiErr := model.ErrorFromResponse(resp.StatusCode, resp.Status, body)
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			c.logger.Warn("backend rejected session token", "url", req.URL.Path)
			c.tokens.Invalidate()
		}
		return nil, apiErr
	}
	return resp, nil
}
