package user

import (
	"encoding/json"
	"fmt"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"furnishop/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type BlockRequest struct {
	UUID  string `json:"uuid" validate:"required"`
	Block bool   `json:"block"`
}

func BlockUser(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.user")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req BlockRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err = validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		if err = handler.BlockUser(principal, req.UUID, req.Block); err != nil {
			logger.Error("block user", sl.Err(err))
			render.Status(r, errorStatus(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Block failed: %v", err)))
			return
		}
		logger.Debug("block user", slog.String("uuid", req.UUID), slog.Bool("block", req.Block))

		render.JSON(w, r, response.Ok(fmt.Sprintf("User block: %t", req.Block)))
	}
}
