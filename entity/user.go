package entity

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	UUID     string    `json:"uuid" bson:"uuid"`
	Name     string    `json:"name" bson:"name" validate:"omitempty"`
	Email    string    `json:"email" bson:"email" validate:"omitempty,email"`
	Phone    string    `json:"phone" bson:"phone" validate:"omitempty"`
	Role     string    `json:"role" bson:"role" validate:"omitempty,oneof=customer dealer admin"`
	Blocked  bool      `json:"blocked" bson:"blocked"`
	LastSeen time.Time `json:"last_seen" bson:"lastSeen"`
}

// UserInfo is the display subset shown as a chat counterpart.
type UserInfo struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Role string `json:"role"`
}

const (
	CustomerRole = "customer"
	DealerRole   = "dealer"
	AdminRole    = "admin"
)

func NewUser(name, email, role string) *User {
	if role == "" {
		role = CustomerRole
	}
	return &User{
		UUID:     uuid.NewString(),
		Name:     name,
		Email:    email,
		Role:     role,
		LastSeen: time.Now(),
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == AdminRole
}

func (u *User) IsDealer() bool {
	return u.Role == DealerRole
}

func (u *User) GetInfo() *UserInfo {
	return &UserInfo{
		UUID: u.UUID,
		Name: u.Name,
		Role: u.Role,
	}
}
