package core

import (
	"fmt"
	"furnishop/entity"
	"furnishop/internal/lib/validate"
	"log/slog"
)

// SaveUser creates or updates a directory entry. Admin only.
func (c *Core) SaveUser(principal *entity.UserAuth, user entity.User) (*entity.User, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	if c.repo == nil {
		return nil, fmt.Errorf("user directory not available")
	}
	if err := validate.Struct(user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	if user.UUID == "" {
		created := entity.NewUser(user.Name, user.Email, user.Role)
		created.Phone = user.Phone
		created.Blocked = user.Blocked
		user = *created
	} else if user.Role == "" {
		user.Role = entity.CustomerRole
	}

	if err := c.repo.UpsertUser(user); err != nil {
		return nil, err
	}
	c.log.With(
		slog.String("uuid", user.UUID),
		slog.String("role", user.Role),
	).Info("user saved")
	return &user, nil
}

// GetUser finds a directory entry by uuid or email. Users may read their own.
func (c *Core) GetUser(principal *entity.UserAuth, uuid, email string) (*entity.User, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("user directory not available")
	}

	var user *entity.User
	var err error
	switch {
	case uuid != "":
		user, err = c.repo.GetUserByUUID(uuid)
	case email != "":
		user, err = c.repo.GetUserByEmail(email)
	default:
		return nil, fmt.Errorf("%w: uuid or email is required", ErrBadRequest)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if !principal.IsAdmin() && principal.UserID != user.UUID {
		return nil, ErrForbidden
	}
	return user, nil
}

// BlockUser toggles the blocked flag; blocked users fail authentication.
func (c *Core) BlockUser(principal *entity.UserAuth, uuid string, blocked bool) error {
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	if c.repo == nil {
		return fmt.Errorf("user directory not available")
	}
	user, err := c.repo.GetUserByUUID(uuid)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	user.Blocked = blocked
	if err = c.repo.UpsertUser(*user); err != nil {
		return err
	}
	c.log.With(
		slog.String("uuid", uuid),
		slog.Bool("blocked", blocked),
	).Info("user block changed")
	return nil
}
