package model

import "time"

// BindingClaim authorizes exactly one (agent, channel user) pairing. It is
// consumed by deletion; an expired row is inert until the cleanup job sweeps
// it.
type BindingClaim struct {
	ID        string    `db:"id" json:"id"`
	AgentID   string    `db:"agent_id" json:"agentId"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateClaimParams struct {
	AgentID   string
	Token     string
	ExpiresAt time.Time
}

// ClaimWithAgent joins a claim with the owning agent's identities, which the
// webhook needs to upsert a binding and register it on the gateway.
type ClaimWithAgent struct {
	BindingClaim
	UserID         string `db:"user_id"`
	GatewayAgentID string `db:"gateway_agent_id"`
}
