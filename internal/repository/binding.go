package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/agent-console-go/internal/model"
)

type BindingRepository interface {
	// Upsert is a no-op when the (agent, channel, channel user) triple already
	// exists, so replaying a webhook after a partial failure stays idempotent.
	Upsert(ctx context.Context, params model.CreateBindingParams) error
	FindByAgentID(ctx context.Context, agentID string) ([]model.AgentBinding, error)
	CountByAgentID(ctx context.Context, agentID string) (int, error)
}

type bindingRepo struct {
	db *sqlx.DB
}

func NewBindingRepository(db *sqlx.DB) BindingRepository {
	return &bindingRepo{db: db}
}

func (r *bindingRepo) Upsert(ctx context.Context, params model.CreateBindingParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_bindings (user_id, agent_id, channel_type, channel_user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agent_id, channel_type, channel_user_id) DO NOTHING
	`, params.UserID, params.AgentID, params.ChannelType, params.ChannelUserID)
	return err
}

func (r *bindingRepo) FindByAgentID(ctx context.Context, agentID string) ([]model.AgentBinding, error) {
	var bindings []model.AgentBinding
	err := r.db.SelectContext(ctx, &bindings, `
		SELECT * FROM agent_bindings
		WHERE agent_id = $1
		ORDER BY created_at DESC
	`, agentID)
	return bindings, err
}

func (r *bindingRepo) CountByAgentID(ctx context.Context, agentID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM agent_bindings WHERE agent_id = $1
	`, agentID)
	return count, err
}
