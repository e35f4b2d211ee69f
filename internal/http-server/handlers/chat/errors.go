package chat

import (
	"errors"
	"furnishop/entity"
	"furnishop/impl/core"
	chatstore "furnishop/internal/chat"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// errorStatus maps core and store failures to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound), errors.Is(err, chatstore.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, chatstore.ErrSessionClosed),
		errors.Is(err, chatstore.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrBadRequest),
		errors.Is(err, entity.ErrUnknownStatus),
		errors.Is(err, chatstore.ErrDealerRequired),
		errors.Is(err, chatstore.ErrInvalidSender),
		errors.Is(err, chatstore.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.With(sl.Err(err)).Error(message)
		render.Status(r, status)
		render.JSON(w, r, response.Error(message))
		return
	}
	logger.With(sl.Err(err), slog.Int("status", status)).Debug(message)
	render.Status(r, status)
	render.JSON(w, r, response.Error(err.Error()))
}
