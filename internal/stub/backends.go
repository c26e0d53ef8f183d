package stub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// The report backends keep uploads and generated reports in memory, keyed
// by the IDs and file names they hand out.

func (s *Server) handleBackendUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		wpError(w, http.StatusBadRequest, "upload_missing_file", "Request has no file part.")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		wpError(w, http.StatusUnsupportedMediaType, "upload_bad_type", "Only .xlsx workbooks are accepted.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		wpError(w, http.StatusBadRequest, "upload_read_failed", "Could not read uploaded file.")
		return
	}

	fileID := uuid.NewString()
	s.mu.Lock()
	s.files[fileID] = data
	s.mu.Unlock()

	s.logger.Info("backend upload", "file_id", fileID, "name", header.Filename, "size", len(data))
	respond(w, http.StatusOK, map[string]any{"file_id": fileID})
}

func (s *Server) handleBackendGenerate(name, ext string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			FileID        string         `json:"file_id"`
			Specification map[string]any `json:"specification"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.FileID == "" {
			wpError(w, http.StatusBadRequest, "generate_missing_file_id", "Request has no file_id.")
			return
		}

		s.mu.Lock()
		data, ok := s.files[in.FileID]
		s.mu.Unlock()
		if !ok {
			wpError(w, http.StatusNotFound, "generate_unknown_file", "No upload with that file_id.")
			return
		}

		reportFile := fmt.Sprintf("report-%s%s", in.FileID, ext)
		report := fmt.Sprintf("%s report generated from %d input bytes", name, len(data))
		if in.Specification != nil {
			spec, _ := json.Marshal(in.Specification)
			report += " with specification " + string(spec)
		}

		s.mu.Lock()
		s.reports[reportFile] = []byte(report)
		s.mu.Unlock()

		s.logger.Info("backend generate", "backend", name, "file_id", in.FileID, "report_file", reportFile)
		respond(w, http.StatusOK, map[string]any{"report_file": reportFile})
	}
}

func (s *Server) reportForRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		wpError(w, http.StatusBadRequest, "report_missing_filename", "Request has no filename.")
		return nil, false
	}

	s.mu.Lock()
	data, ok := s.reports[name]
	s.mu.Unlock()
	if !ok {
		wpError(w, http.StatusNotFound, "report_not_found", "No report with that filename.")
		return nil, false
	}
	return data, true
}

func (s *Server) handleBackendDownload(w http.ResponseWriter, r *http.Request) {
	data, ok := s.reportForRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) handleBackendView(w http.ResponseWriter, r *http.Request) {
	data, ok := s.reportForRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><pre>%s</pre></body></html>", data)
}
