package files

import (
	"errors"
	"fmt"
	"furnishop/entity"
	"furnishop/impl/core"
	"furnishop/internal/http-server/middleware/authenticate"
	"furnishop/internal/lib/sl"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Download streams an attachment. It accepts a signed link (?expires=&sig=)
// or an API key via the Authorization header or ?token= (for <img src>).
func Download(log *slog.Logger, handler Core, auth authenticate.Authenticate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.files"),
			slog.String("file_id", fileID),
		)

		var principal *entity.UserAuth
		if token := authenticate.RequestToken(r); token != "" {
			user, err := auth.AuthenticateByToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			principal = user
		}

		query := r.URL.Query()
		filename, mimeType, reader, err := handler.DownloadAttachment(r.Context(), principal, fileID, query.Get("expires"), query.Get("sig"))
		if err != nil {
			switch {
			case errors.Is(err, core.ErrUnauthorized):
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			case errors.Is(err, core.ErrForbidden):
				http.Error(w, "Forbidden", http.StatusForbidden)
			default:
				logger.With(sl.Err(err)).Debug("failed to download file")
				http.Error(w, "File not found", http.StatusNotFound)
			}
			return
		}
		defer func() { _ = reader.Close() }()

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))

		if _, err = io.Copy(w, reader); err != nil {
			logger.With(sl.Err(err)).Error("failed to stream file")
		}
	}
}
