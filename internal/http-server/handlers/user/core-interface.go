package user

import "furnishop/entity"

type Core interface {
	SaveUser(principal *entity.UserAuth, user entity.User) (*entity.User, error)
	GetUser(principal *entity.UserAuth, uuid, email string) (*entity.User, error)
	BlockUser(principal *entity.UserAuth, uuid string, blocked bool) error
}
