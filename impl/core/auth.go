package core

import (
	"fmt"
	"furnishop/entity"
	"furnishop/internal/lib/sl"
	"log/slog"
)

const adminUsername = "admin"

// AuthenticateByToken resolves an API key to a principal. The configured
// bootstrap key always maps to the built-in admin.
func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	if c.authKey != "" && token == c.authKey {
		return &entity.UserAuth{
			Username: adminUsername,
			UserID:   adminUsername,
			Role:     entity.AdminRole,
			Name:     "Administrator",
			Token:    token,
		}, nil
	}
	if c.repo == nil {
		return nil, fmt.Errorf("%w: user directory not available", ErrUnauthorized)
	}

	username, err := c.repo.CheckApiKey(token)
	if err != nil {
		return nil, fmt.Errorf("check api key: %w", err)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: unknown api key", ErrUnauthorized)
	}
	user, err := c.repo.GetUserByUUID(username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s not found", ErrUnauthorized, username)
	}
	if user.Blocked {
		return nil, fmt.Errorf("%w: user %s is blocked", ErrUnauthorized, username)
	}

	role := user.Role
	if role == "" {
		role = entity.CustomerRole
	}
	return &entity.UserAuth{
		Username: username,
		UserID:   user.UUID,
		Role:     role,
		Name:     user.Name,
		Token:    token,
	}, nil
}

// GenerateApiKey issues (or returns the existing) key of a directory user. Admin only.
func (c *Core) GenerateApiKey(principal *entity.UserAuth, username string) (string, error) {
	if !principal.IsAdmin() {
		return "", ErrForbidden
	}
	if c.repo == nil {
		return "", fmt.Errorf("user directory not available")
	}
	user, err := c.repo.GetUserByUUID(username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, username)
	}
	key, err := c.repo.GenerateApiKey(username)
	if err != nil {
		c.log.With(
			slog.String("username", username),
			sl.Err(err),
		).Error("generate api key")
		return "", err
	}
	return key, nil
}

func (c *Core) lookupUser(id string) *entity.UserInfo {
	if c.repo == nil || id == "" {
		return nil
	}
	if id == adminUsername {
		return &entity.UserInfo{UUID: adminUsername, Name: "Administrator", Role: entity.AdminRole}
	}
	user, err := c.repo.GetUserByUUID(id)
	if err != nil {
		c.log.With(slog.String("user_id", id), sl.Err(err)).Warn("lookup user")
		return nil
	}
	if user == nil {
		return nil
	}
	return user.GetInfo()
}

func (c *Core) lookupProduct(id string) *entity.ProductInfo {
	if c.catalog == nil || id == "" {
		return nil
	}
	product, err := c.catalog.GetProduct(id)
	if err != nil {
		c.log.With(slog.String("product_id", id), sl.Err(err)).Warn("lookup product")
		return nil
	}
	if product == nil {
		return nil
	}
	return product.Info()
}
