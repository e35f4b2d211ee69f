package chat

import (
	"encoding/json"
	"furnishop/entity"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"furnishop/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed cancelled"`
}

type AssignRequest struct {
	DealerID string `json:"dealer_id"`
}

func SetStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("session_id", id),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req StatusRequest
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

		if err = handler.UpdateChatStatus(r.Context(), user, id, entity.ChatStatus(req.Status)); err != nil {
			renderError(w, r, logger, "Failed to update chat status", err)
			return
		}

		logger.Debug("chat status updated", slog.String("status", req.Status))
		render.JSON(w, r, response.Ok("Chat status updated"))
	}
}

// Assign hands a waiting chat to a dealer. Dealers may omit dealer_id to pick it up themselves.
func Assign(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("session_id", id),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req AssignRequest
		if r.ContentLength != 0 {
			if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
				logger.Error("failed to decode request body", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("Invalid request body"))
				return
			}
		}

		if err = handler.AssignChatDealer(r.Context(), user, id, req.DealerID); err != nil {
			renderError(w, r, logger, "Failed to assign dealer", err)
			return
		}

		render.JSON(w, r, response.Ok("Dealer assigned"))
	}
}
