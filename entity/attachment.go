package entity

import (
	"errors"
	"fmt"
)

// MaxFileSize is the maximum allowed file size for uploads (2 MB).
const MaxFileSize = 2 << 20

// ErrFileTooLarge is returned when an uploaded file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, MaxFileSize>>20)
}

// Attachment describes an uploaded file. URL is the stable download path
// that goes into ChatMessage.Attachments; SignedURL expires.
type Attachment struct {
	FileID    string `json:"file_id"`
	Filename  string `json:"filename"`
	MIMEType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
	SignedURL string `json:"signed_url,omitempty"`
}

// FileMetadata holds GridFS metadata for an uploaded file.
type FileMetadata struct {
	MIMEType  string `bson:"mime_type"`
	SessionID string `bson:"session_id"`
	Uploader  string `bson:"uploader"`
}
