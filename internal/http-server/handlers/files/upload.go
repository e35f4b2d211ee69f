package files

import (
	"errors"
	"fmt"
	"furnishop/entity"
	"furnishop/impl/core"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Upload stores one attachment for a chat session.
// Content-Type: multipart/form-data, fields: session_id, file
func Upload(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.files"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, entity.MaxFileSize+(1<<20))
		if err = r.ParseMultipartForm(entity.MaxFileSize); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid multipart form"))
			return
		}

		sessionID := r.FormValue("session_id")
		if sessionID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("session_id is required"))
			return
		}

		file, fh, err := r.FormFile("file")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("file is required"))
			return
		}
		defer func() { _ = file.Close() }()

		if fh.Size > entity.MaxFileSize {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, response.Error(fmt.Sprintf("file %q exceeds the %d MB limit", fh.Filename, entity.MaxFileSize>>20)))
			return
		}

		logger = logger.With(
			slog.String("session_id", sessionID),
			slog.String("filename", fh.Filename),
			slog.Int64("size", fh.Size),
		)

		attachment, err := handler.UploadAttachment(r.Context(), user, sessionID, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, file)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, entity.ErrFileTooLarge):
				status = http.StatusRequestEntityTooLarge
			case errors.Is(err, core.ErrForbidden):
				status = http.StatusForbidden
			case errors.Is(err, core.ErrNotFound):
				status = http.StatusNotFound
			}
			logger.With(sl.Err(err)).Error("failed to upload file")
			render.Status(r, status)
			render.JSON(w, r, response.Error("failed to store file"))
			return
		}

		logger.Debug("file uploaded", slog.String("file_id", attachment.FileID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(attachment))
	}
}
