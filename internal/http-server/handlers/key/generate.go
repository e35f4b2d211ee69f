package key

import (
	"encoding/json"
	"errors"
	"furnishop/entity"
	"furnishop/impl/core"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"furnishop/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	GenerateApiKey(principal *entity.UserAuth, username string) (string, error)
}

type Request struct {
	Username string `json:"username" validate:"required"`
}

type Response struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// Generate issues an API key for a directory user. Admin only.
func Generate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.key"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req Request
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err = validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		key, err := handler.GenerateApiKey(user, req.Username)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, core.ErrForbidden):
				status = http.StatusForbidden
			case errors.Is(err, core.ErrNotFound):
				status = http.StatusNotFound
			default:
				logger.With(sl.Err(err)).Error("generate api key")
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error("Failed to generate key"))
			return
		}

		logger.With(
			slog.String("username", req.Username),
			sl.Secret("key", key),
		).Info("api key issued")
		render.JSON(w, r, response.Ok(Response{Username: req.Username, Key: key}))
	}
}
