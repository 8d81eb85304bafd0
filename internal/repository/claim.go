package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/agent-console-go/internal/model"
)

type ClaimRepository interface {
	Create(ctx context.Context, params model.CreateClaimParams) (*model.BindingClaim, error)
	// FindValidByToken returns the claim joined with its owning agent, or nil
	// when the token is unknown or expired.
	FindValidByToken(ctx context.Context, token string) (*model.ClaimWithAgent, error)
	// Consume deletes the claim in a single conditional statement and reports
	// whether this call was the one that removed it.
	Consume(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type claimRepo struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) ClaimRepository {
	return &claimRepo{db: db}
}

func (r *claimRepo) Create(ctx context.Context, params model.CreateClaimParams) (*model.BindingClaim, error) {
	var c model.BindingClaim
	err := r.db.GetContext(ctx, &c, `
		INSERT INTO agent_binding_claims (agent_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.AgentID, params.Token, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *claimRepo) FindValidByToken(ctx context.Context, token string) (*model.ClaimWithAgent, error) {
	var c model.ClaimWithAgent
	err := r.db.GetContext(ctx, &c, `
		SELECT c.*, a.user_id, a.gateway_agent_id
		FROM agent_binding_claims c
		JOIN agents a ON a.id = c.agent_id
		WHERE c.token = $1 AND c.expires_at > NOW()
	`, token)
	return oneOrNone(&c, err)
}

func (r *claimRepo) Consume(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM agent_binding_claims WHERE token = $1
	`, token)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *claimRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM agent_binding_claims WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
