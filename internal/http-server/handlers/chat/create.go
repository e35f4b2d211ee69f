package chat

import (
	"encoding/json"
	"furnishop/internal/lib/api/cont"
	"furnishop/internal/lib/api/response"
	"furnishop/internal/lib/sl"
	"furnishop/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type CreateRequest struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id" validate:"required"`
	DealerID   string `json:"dealer_id"`
	Message    string `json:"message" validate:"max=4000"`
}

// Create opens an inquiry chat about a product.
func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.chat")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, err := cont.GetUser(r.Context())
		if err != nil {
			logger.Error("user not found in context")
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
		if err = validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		logger = logger.With(
			slog.String("user", user.Username),
			slog.String("product_id", req.ProductID),
		)

		session, err := handler.CreateInquiry(r.Context(), user, req.CustomerID, req.ProductID, req.DealerID, req.Message)
		if err != nil {
			renderError(w, r, logger, "Failed to create chat", err)
			return
		}
		logger.Debug("chat created", slog.String("session_id", session.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(session))
	}
}
