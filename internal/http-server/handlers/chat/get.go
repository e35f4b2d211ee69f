package chat

import (
	"furnishop/entity"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		id := chi.URLParam(r, "id")
		chat, err := handler.GetChat(r.Context(), user, id)
		if err != nil {
			renderError(w, r, logger.With(slog.String("session_id", id)), "Failed to get chat", err)
			return
		}

		render.JSON(w, r, response.Ok(chat))
	}
}

func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		id := chi.URLParam(r, "id")
		messages, err := handler.GetChatMessages(r.Context(), user, id)
		if err != nil {
			renderError(w, r, logger.With(slog.String("session_id", id)), "Failed to get messages", err)
			return
		}
		if messages == nil {
			messages = []entity.ChatMessage{}
		}

		render.JSON(w, r, response.Ok(messages))
	}
}
