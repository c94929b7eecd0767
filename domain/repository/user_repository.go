package repository

import (
	"context"
	"errors"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
)

// ErrUserNotFound is returned when no user matches the given username.
var ErrUserNotFound = errors.New("user not found")

// UserRepository provides access to API users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
	CountAll(ctx context.Context) (int64, error)
}
