package chat

import (
	"context"
	"furnishop/entity"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type lister func(ctx context.Context, user *entity.UserAuth, id string, withMessages bool) ([]*entity.ChatHeader, error)

func ListByCustomer(log *slog.Logger, handler Core) http.HandlerFunc {
	return list(log, "customer", handler.ListCustomerChats)
}

func ListByDealer(log *slog.Logger, handler Core) http.HandlerFunc {
	return list(log, "dealer", handler.ListDealerChats)
}

func ListByProduct(log *slog.Logger, handler Core) http.HandlerFunc {
	return list(log, "product", handler.ListProductChats)
}

// ListWaiting returns inquiries no dealer has picked up yet, oldest first.
func ListWaiting(log *slog.Logger, handler Core) http.HandlerFunc {
	return list(log, "waiting", func(ctx context.Context, user *entity.UserAuth, _ string, withMessages bool) ([]*entity.ChatHeader, error) {
		return handler.ListWaitingChats(ctx, user, withMessages)
	})
}

func list(log *slog.Logger, by string, fetch lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("list_by", by),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		withMessages := true
		if v := r.URL.Query().Get("messages"); v != "" {
			withMessages, err = strconv.ParseBool(v)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("messages must be true or false"))
				return
			}
		}

		chats, err := fetch(r.Context(), user, chi.URLParam(r, "id"), withMessages)
		if err != nil {
			renderError(w, r, logger, "Failed to list chats", err)
			return
		}
		if chats == nil {
			chats = []*entity.ChatHeader{}
		}

		logger.Debug("chats listed", slog.Int("count", len(chats)))
		render.JSON(w, r, response.Ok(chats))
	}
}
