package intake

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFileSize is the largest upload accepted, 10 MiB.
const MaxFileSize = 10 * 1024 * 1024

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
	"video/mp4":  true,
}

// User-facing rejections. The error text is shown as is.
var (
	ErrUnsupportedType = errors.New("Please upload a valid image (JPG, PNG) or video (MP4)")
	ErrTooLarge        = errors.New("File size must be less than 10MB")
)

// File describes an upload before its content is read.
type File struct {
	Name string
	Type string
	Size int64
}

// Validate rejects files outside the type allow-list or above MaxFileSize.
func Validate(f File) error {
	if !allowedTypes[normalizeType(f.Type)] {
		return ErrUnsupportedType
	}
	if f.Size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

func IsVideo(mimeType string) bool {
	return strings.HasPrefix(normalizeType(mimeType), "video/")
}

// DetectType keeps a meaningful declared type and otherwise sniffs the content.
func DetectType(declared string, head []byte) string {
	declared = normalizeType(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(head) == 0 {
		return declared
	}
	return normalizeType(mimetype.Detect(head).String())
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
