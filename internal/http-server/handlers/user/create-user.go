package user

import (
	"encoding/json"
	"furnishop/entity"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type CreateRequest struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// CreateUser adds or updates a customer, dealer or admin record.
func CreateUser(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.user"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req CreateRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		user, err := handler.SaveUser(principal, entity.User{
			UUID:  req.UUID,
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
			Role:  req.Role,
		})
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("save user", sl.Err(err))
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		logger.Debug("user saved", slog.String("uuid", user.UUID))

		render.JSON(w, r, response.Ok(user))
	}
}
