// Package reportgen is a generic client for the report-generation
// backends. The four services (docs, html, excel, slicer) share the upload
// → generate → download shape but are independently versioned, so each is
// described by a small Backend record instead of its own client type.
package reportgen

import "time"

// DefaultGenerateTimeout bounds the single blocking generation request.
// The backend does all the work before responding, so this is deliberately
// long compared to an ordinary request timeout.
const DefaultGenerateTimeout = 90 * time.Second

// Backend describes one report-generation service: its routes, multipart
// and response field names, and timeout. No shared schema is assumed
// beyond the {file_id} / {report_file} envelope.
type Backend struct {
	Name    string
	BaseURL string

	UploadPath   string // POST multipart -> {file_id}
	GeneratePath string // POST {file_id} -> {report_file}
	DownloadPath string // GET ?file_id=&filename= -> binary
	ViewPath     string // GET ?file_id=&filename= -> renderable HTML; empty when unsupported

	FileField   string // multipart field name for the upload
	ReportField string // generate-response field holding the report file name

	GenerateTimeout time.Duration
}

// SupportsView reports whether the backend can render a browsable report.
func (b Backend) SupportsView() bool {
	return b.ViewPath != ""
}

// withDefaults fills the fields most backends share.
func (b Backend) withDefaults() Backend {
	if b.UploadPath == "" {
		b.UploadPath = "/upload"
	}
	if b.GeneratePath == "" {
		b.GeneratePath = "/generate"
	}
	if b.DownloadPath == "" {
		b.DownloadPath = "/download"
	}
	if b.FileField == "" {
		b.FileField = "file"
	}
	if b.ReportField == "" {
		b.ReportField = "report_file"
	}
	if b.GenerateTimeout <= 0 {
		b.GenerateTimeout = DefaultGenerateTimeout
	}
	return b
}

// Docs returns the Word-document report backend.
func Docs(baseURL string) Backend {
	return Backend{Name: "docs", BaseURL: baseURL}.withDefaults()
}

// HTML returns the HTML report backend, which additionally renders reports
// for in-browser viewing.
func HTML(baseURL string) Backend {
	return Backend{Name: "html", BaseURL: baseURL, ViewPath: "/view"}.withDefaults()
}

// Excel returns the Excel report backend.
func Excel(baseURL string) Backend {
	return Backend{Name: "excel", BaseURL: baseURL}.withDefaults()
}

// Slicer returns the slicer/predictive report backend. It renders reports
// and accepts a prediction specification with the generate call.
func Slicer(baseURL string) Backend {
	return Backend{Name: "slicer", BaseURL: baseURL, ViewPath: "/view"}.withDefaults()
}
