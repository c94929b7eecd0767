package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
)

const userSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

// PostgresUserRepository implements repository.UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(db *sqlx.DB, logger *zap.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the users table if it does not exist.
func (r *PostgresUserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, userSchema); err != nil {
		return errors.Wrap(err, "ensure users schema")
	}
	return nil
}

// GetByUsername returns the user with the given username.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.GetContext(ctx, &user,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = $1", username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", zap.String("username", username), zap.Error(err))
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

// Create inserts a new user.
func (r *PostgresUserRepository) Create(ctx context.Context, user *entity.User) error {
	err := r.db.QueryRowxContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at",
		user.Username, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return errors.Wrap(err, "create user")
	}
	return nil
}

// CountAll returns the number of users.
func (r *PostgresUserRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return count, nil
}
