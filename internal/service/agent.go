package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/audit"
	apperrors "github.com/openclaw/agent-console-go/internal/errors"
	"github.com/openclaw/agent-console-go/internal/gateway"
	"github.com/openclaw/agent-console-go/internal/model"
	"github.com/openclaw/agent-console-go/internal/repository"
)

// Placeholder identities persisted for demo users so the console works
// without a live gateway.
const (
	DemoPlaceholderAgentID     = "demo-agent"
	DemoPlaceholderWorkspaceID = "demo-workspace"
)

// GatewayAPI is the slice of the gateway client the services need. Satisfied
// by *gateway.Client.
type GatewayAPI interface {
	CreateAgent(ctx context.Context, userID string) (*gateway.AgentIdentity, error)
	BindChannel(ctx context.Context, agentID, channelType, channelUserID string) error
}

type EnsureAgentOptions struct {
	// SkipGateway persists placeholder ids instead of provisioning remotely.
	SkipGateway bool
}

type AgentService struct {
	agentRepo repository.AgentRepository
	gateway   GatewayAPI
}

func NewAgentService(agentRepo repository.AgentRepository, gw GatewayAPI) *AgentService {
	return &AgentService{
		agentRepo: agentRepo,
		gateway:   gw,
	}
}

// EnsureAgent returns the user's agent, provisioning one on first access.
// Concurrent calls for the same user converge on a single row: the insert is
// conflict-free and the loser re-reads the winner's agent.
func (s *AgentService) EnsureAgent(ctx context.Context, userID string, opts EnsureAgentOptions) (*model.Agent, error) {
	existing, err := s.agentRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return existing, nil
	}

	var agentID, workspaceID string
	if opts.SkipGateway {
		agentID = DemoPlaceholderAgentID
		workspaceID = DemoPlaceholderWorkspaceID
	} else {
		if s.gateway == nil {
			return nil, apperrors.Configuration("gateway client is not configured")
		}
		identity, err := s.gateway.CreateAgent(ctx, userID)
		if err != nil {
			// No partial state: nothing was persisted yet.
			return nil, fmt.Errorf("provision gateway agent: %w", err)
		}
		agentID = identity.AgentID
		workspaceID = identity.WorkspaceID
	}

	created, err := s.agentRepo.Create(ctx, model.CreateAgentParams{
		UserID:             userID,
		GatewayAgentID:     agentID,
		GatewayWorkspaceID: workspaceID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if created == nil {
		// Lost the race to a concurrent EnsureAgent; use its row.
		winner, err := s.agentRepo.FindByUserID(ctx, userID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if winner == nil {
			return nil, apperrors.Internal("agent insert conflicted but no row exists")
		}
		return winner, nil
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventAgentProvision,
		UserID:  userID,
		AgentID: created.ID,
		Details: map[string]interface{}{
			"gatewayAgentId": agentID,
			"placeholder":    opts.SkipGateway,
		},
	})
	log.Info().
		Str("userId", userID).
		Str("agentId", created.ID).
		Str("gatewayAgentId", agentID).
		Bool("placeholder", opts.SkipGateway).
		Msg("agent provisioned")

	return created, nil
}

// IsDemoPlaceholder reports whether a gateway agent id is the demo stand-in
// with no real gateway behind it.
func IsDemoPlaceholder(gatewayAgentID string) bool {
	return gatewayAgentID == DemoPlaceholderAgentID
}
