package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/config"
	apperrors "github.com/openclaw/agent-console-go/internal/errors"
)

// Client talks to the remote agent-hosting gateway's management API. All
// calls carry the process-wide bearer token from configuration.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, apperrors.Configuration("OPENCLAW_GATEWAY_URL is not set")
	}
	if token == "" {
		return nil, apperrors.Configuration("OPENCLAW_GATEWAY_TOKEN is not set")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: config.GatewayRequestTimeout,
		},
	}, nil
}

// AgentIdentity is the normalized shape of a provisioned gateway agent.
type AgentIdentity struct {
	AgentID     string
	WorkspaceID string
}

// createAgentResponse tolerates both field-naming conventions the gateway has
// been observed to use for the same logical ids.
type createAgentResponse struct {
	AgentID          string `json:"agentId"`
	ID               string `json:"id"`
	WorkspaceID      string `json:"workspaceId"`
	WorkspaceIDSnake string `json:"workspace_id"`
}

// CreateAgent provisions a dedicated agent/workspace for a user.
func (c *Client) CreateAgent(ctx context.Context, userID string) (*AgentIdentity, error) {
	body := map[string]string{
		"name":         fmt.Sprintf("User %s agent", userID),
		"systemPrompt": "You are a helpful personal assistant for this user.",
	}

	resp, err := c.post(ctx, "/agents", body)
	if err != nil {
		return nil, apperrors.GatewayUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(text)).
			Msg("gateway createAgent failed")
		return nil, apperrors.GatewayUnavailable(fmt.Errorf("createAgent status %d", resp.StatusCode))
	}

	var parsed createAgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.GatewayProtocol("Gateway returned unparseable createAgent response")
	}

	agentID := parsed.AgentID
	if agentID == "" {
		agentID = parsed.ID
	}
	workspaceID := parsed.WorkspaceID
	if workspaceID == "" {
		workspaceID = parsed.WorkspaceIDSnake
	}
	if agentID == "" || workspaceID == "" {
		return nil, apperrors.GatewayProtocol("Gateway response missing agentId or workspaceId")
	}

	return &AgentIdentity{AgentID: agentID, WorkspaceID: workspaceID}, nil
}

// BindChannel registers an external channel identity for an agent. Every
// failure, transport-level included, carries the binding-failed code; callers
// decide whether to retry.
func (c *Client) BindChannel(ctx context.Context, agentID, channelType, channelUserID string) error {
	body := map[string]string{
		"channel":       channelType,
		"channelUserId": channelUserID,
	}

	start := time.Now()
	resp, err := c.post(ctx, fmt.Sprintf("/agents/%s/bindings", agentID), body)
	if err != nil {
		log.Error().
			Err(err).
			Str("agentId", agentID).
			Str("channel", channelType).
			Msg("gateway bindChannel request failed")
		return apperrors.GatewayBindingUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("agentId", agentID).
			Str("channel", channelType).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("gateway bindChannel failed")
		return apperrors.GatewayBindingFailed(resp.StatusCode)
	}

	log.Info().
		Str("agentId", agentID).
		Str("channel", channelType).
		Dur("elapsed", time.Since(start)).
		Msg("gateway channel binding registered")

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.client.Do(req)
}
