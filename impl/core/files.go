package core

import (
	"context"
	"fmt"
	"furnishop/entity"
	"furnishop/internal/lib/fileurl"
	"furnishop/internal/lib/sl"
	"io"
	"log/slog"
)

// UploadAttachment stores a file for a session the principal writes to and
// returns its stable path plus a signed link for direct embedding.
func (c *Core) UploadAttachment(ctx context.Context, principal *entity.UserAuth, sessionID, filename, mimeType string, size int64, reader io.Reader) (*entity.Attachment, error) {
	if c.files == nil {
		return nil, fmt.Errorf("file storage not available")
	}
	if size > entity.MaxFileSize {
		return nil, entity.FileTooLargeError(filename, size)
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if !principal.IsAdmin() && !session.IsParticipant(principal.UserID) {
		return nil, ErrForbidden
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	meta := entity.FileMetadata{
		MIMEType:  mimeType,
		SessionID: sessionID,
		Uploader:  principal.UserID,
	}

	fileID, stored, err := c.files.UploadFile(filename, reader, meta)
	if err != nil {
		c.log.With(
			slog.String("session_id", sessionID),
			slog.String("filename", filename),
			sl.Err(err),
		).Error("upload attachment")
		return nil, err
	}

	attachment := &entity.Attachment{
		FileID:   fileID,
		Filename: filename,
		MIMEType: mimeType,
		Size:     stored,
		URL:      fileurl.Path(fileID),
	}
	if c.fileSecret != "" {
		attachment.SignedURL = fileurl.SignURL(fileID, c.fileSecret, c.fileTTL)
	}
	return attachment, nil
}

// DownloadAttachment opens a stored file. A valid signature grants access on
// its own; otherwise the principal must be able to read the owning session.
func (c *Core) DownloadAttachment(ctx context.Context, principal *entity.UserAuth, fileID, expires, sig string) (string, string, io.ReadCloser, error) {
	if c.files == nil {
		return "", "", nil, fmt.Errorf("file storage not available")
	}
	signed := fileurl.Verify(fileID, expires, sig, c.fileSecret)
	if !signed && principal == nil {
		return "", "", nil, ErrUnauthorized
	}

	filename, meta, reader, err := c.files.DownloadFile(fileID)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: file %s: %w", ErrNotFound, fileID, err)
	}

	if !signed {
		if _, err = c.readableSession(ctx, principal, meta.SessionID); err != nil {
			_ = reader.Close()
			return "", "", nil, err
		}
	}
	return filename, meta.MIMEType, reader, nil
}
