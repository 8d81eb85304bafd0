package model

import "time"

// Agent links a local user to the conversational agent provisioned for them
// on the remote gateway. Exactly one per user; created lazily on first
// dashboard access and immutable afterwards.
type Agent struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"userId"`
	GatewayAgentID     string    `db:"gateway_agent_id" json:"gatewayAgentId"`
	GatewayWorkspaceID string    `db:"gateway_workspace_id" json:"gatewayWorkspaceId"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

type CreateAgentParams struct {
	UserID             string
	GatewayAgentID     string
	GatewayWorkspaceID string
}

// AgentBinding is a durable link between an agent and one external channel
// identity. Unique on (agent_id, channel_type, channel_user_id).
type AgentBinding struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	AgentID       string    `db:"agent_id" json:"agentId"`
	ChannelType   string    `db:"channel_type" json:"channelType"`
	ChannelUserID string    `db:"channel_user_id" json:"channelUserId"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type CreateBindingParams struct {
	UserID        string
	AgentID       string
	ChannelType   string
	ChannelUserID string
}

// ChannelTelegram is the only channel type registered today.
const ChannelTelegram = "telegram"
