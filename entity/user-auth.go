package entity

import (
	"furnishop/internal/lib/validate"
	"net/http"
)

// UserAuth is the authenticated principal attached to a request context.
type UserAuth struct {
	Username string `json:"username" bson:"username" validate:"required"`
	UserID   string `json:"user_id" bson:"user_id" validate:"required"`
	Role     string `json:"role" bson:"role" validate:"required,oneof=customer dealer admin"`
	Name     string `json:"name" bson:"name" validate:"omitempty"`
	Token    string `json:"token" bson:"token" validate:"required,min=1"`
}

func (u *UserAuth) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

func (u *UserAuth) IsAdmin() bool {
	return u.Role == AdminRole
}

func (u *UserAuth) IsDealer() bool {
	return u.Role == DealerRole
}
