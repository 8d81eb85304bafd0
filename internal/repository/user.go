package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/agent-console-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindBySessionTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return oneOrNone(&u, err)
}

func (r *userRepo) FindBySessionTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `
		SELECT u.* FROM users u
		JOIN user_sessions s ON s.user_id = u.id
		WHERE s.token_hash = $1 AND s.expires_at > NOW()
	`, tokenHash)
	return oneOrNone(&u, err)
}

func (r *userRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM user_sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
