package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/audit"
	"github.com/openclaw/agent-console-go/internal/middleware"
	"github.com/openclaw/agent-console-go/internal/service"
	"github.com/openclaw/agent-console-go/internal/token"
)

type ChatTokenHandler struct {
	agentService *service.AgentService
	issuer       *token.Issuer

	// gatewayConfigured is false in local setups with no gateway; every user
	// then gets the demo placeholder agent.
	gatewayConfigured bool
}

func NewChatTokenHandler(agentService *service.AgentService, issuer *token.Issuer, gatewayConfigured bool) *ChatTokenHandler {
	return &ChatTokenHandler{
		agentService:      agentService,
		issuer:            issuer,
		gatewayConfigured: gatewayConfigured,
	}
}

// GET /api/chat/token
func (h *ChatTokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUser(ctx)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	skipGateway := user.Demo || !h.gatewayConfigured
	agent, err := h.agentService.EnsureAgent(ctx, user.ID, service.EnsureAgentOptions{SkipGateway: skipGateway})
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to ensure agent")
		writeError(w, err)
		return
	}

	chatToken, err := h.issuer.Issue(agent.GatewayAgentID)
	if err != nil {
		log.Error().Err(err).Str("agentId", agent.ID).Msg("failed to issue chat token")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventChatTokenIssue,
		UserID:  user.ID,
		AgentID: agent.ID,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"token":   chatToken,
		"agentId": agent.GatewayAgentID,
	})
}
