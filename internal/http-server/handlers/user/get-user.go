package user

import (
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func GetUser(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		query := r.URL.Query()
		user, err := handler.GetUser(principal, query.Get("uuid"), query.Get("email"))
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				log.With(
					sl.Module("http.handlers.user"),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				).Error("get user")
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error("Failed to get user"))
			return
		}

		render.JSON(w, r, response.Ok(user))
	}
}
