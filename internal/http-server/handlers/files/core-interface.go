package files

import (
	"context"
	"furnishop/entity"
	"io"
)

type Core interface {
	UploadAttachment(ctx context.Context, principal *entity.UserAuth, sessionID, filename, mimeType string, size int64, reader io.Reader) (*entity.Attachment, error)
	DownloadAttachment(ctx context.Context, principal *entity.UserAuth, fileID, expires, sig string) (string, string, io.ReadCloser, error)
}
