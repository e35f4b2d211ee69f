package chat

import (
	"encoding/json"
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

type SendRequest struct {
	Content     string   `json:"content" validate:"required_without=Attachments,max=4000"`
	Attachments []string `json:"attachments" validate:"max=10"`
}

type SendResponse struct {
	MessageID string `json:"message_id"`
}

func Send(log *slog.Logger, handler Core) http.HandlerFunc {
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

		var req SendRequest
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

		messageID, err := handler.SendChatMessage(r.Context(), user, id, req.Content, req.Attachments)
		if err != nil {
			renderError(w, r, logger, "Failed to send message", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(SendResponse{MessageID: messageID}))
	}
}
