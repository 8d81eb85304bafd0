package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/agent-console-go/internal/model"
)

type AgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Agent, error)
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Agent, error)
	// Create inserts an agent for a user and returns it. When another request
	// created one concurrently, Create returns nil without error and the
	// caller re-reads with FindByUserID.
	Create(ctx context.Context, params model.CreateAgentParams) (*model.Agent, error)
}

type agentRepo struct {
	db *sqlx.DB
}

func NewAgentRepository(db *sqlx.DB) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) FindByUserID(ctx context.Context, userID string) (*model.Agent, error) {
	var a model.Agent
	err := r.db.GetContext(ctx, &a, `
		SELECT * FROM agents WHERE user_id = $1 LIMIT 1
	`, userID)
	return oneOrNone(&a, err)
}

func (r *agentRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Agent, error) {
	var a model.Agent
	err := r.db.GetContext(ctx, &a, `
		SELECT * FROM agents WHERE id = $1 AND user_id = $2
	`, id, userID)
	return oneOrNone(&a, err)
}

func (r *agentRepo) Create(ctx context.Context, params model.CreateAgentParams) (*model.Agent, error) {
	var a model.Agent
	// The unique constraint on user_id is what enforces one agent per user;
	// a conflicting insert yields no row rather than an error.
	err := r.db.GetContext(ctx, &a, `
		INSERT INTO agents (user_id, gateway_agent_id, gateway_workspace_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING *
	`, params.UserID, params.GatewayAgentID, params.GatewayWorkspaceID)
	return oneOrNone(&a, err)
}
