package content

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/me/reportkit/pkg/model"
)

const mediaPath = "/wp-json/wp/v2/media"

// MaxMediaFileSize is the client-side ceiling for media uploads. Media is
// the large-file category; report inputs have their own, smaller ceiling.
const MaxMediaFileSize int64 = 64 << 20 // 64 MiB

// mediaExtensions lists the accepted image extensions (lowercase).
var mediaExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type rawMedia struct {
	ID        int64    `json:"id"`
	SourceURL string   `json:"source_url"`
	AltText   string   `json:"alt_text"`
	MimeType  string   `json:"mime_type"`
	Title     rendered `json:"title"`
}

// ValidateMediaFile checks extension and size before any network call.
func ValidateMediaFile(path string, size int64) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !mediaExtensions[ext] {
		return model.NewValidationError("unsupported media extension %q", ext)
	}
	if size > MaxMediaFileSize {
		return model.NewValidationError("file is %s, media uploads are limited to %s",
			humanize.Bytes(uint64(size)), humanize.Bytes(uint64(MaxMediaFileSize)))
	}
	return nil
}

// UploadMedia uploads an image and returns the created media item,
// typically for use as a post's featured image.
func (c *Client) UploadMedia(ctx context.Context, path string) (*model.Media, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, model.NewValidationError("cannot read file: %v", err)
	}
	if err := ValidateMediaFile(path, info.Size()); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewValidationError("cannot open file: %v", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := http.Header{}
	headers.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filepath.Base(path)))

	body, err := c.sendRaw(ctx, "POST", mediaPath, nil, contentType, headers, f, "")
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	var raw rawMedia
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse media: %w", err)
	}
	return &model.Media{
		ID:       raw.ID,
		URL:      raw.SourceURL,
		AltText:  raw.AltText,
		MimeType: raw.MimeType,
	}, nil
}
