package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/audit"
	"github.com/openclaw/agent-console-go/internal/config"
	apperrors "github.com/openclaw/agent-console-go/internal/errors"
	"github.com/openclaw/agent-console-go/internal/model"
	"github.com/openclaw/agent-console-go/internal/repository"
	"github.com/openclaw/agent-console-go/internal/util"
)

// ClaimLink is what the owner shows the user: a deep link that opens the
// Telegram bot carrying the single-use claim token.
type ClaimLink struct {
	DeepLink  string    `json:"deepLink"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ClaimService struct {
	claimRepo   repository.ClaimRepository
	agentRepo   repository.AgentRepository
	bindingRepo repository.BindingRepository
	gateway     GatewayAPI
	botUsername string
}

func NewClaimService(
	claimRepo repository.ClaimRepository,
	agentRepo repository.AgentRepository,
	bindingRepo repository.BindingRepository,
	gw GatewayAPI,
	botUsername string,
) *ClaimService {
	return &ClaimService{
		claimRepo:   claimRepo,
		agentRepo:   agentRepo,
		bindingRepo: bindingRepo,
		gateway:     gw,
		botUsername: botUsername,
	}
}

// CreateClaim mints a single-use, 10-minute claim for one of the caller's own
// agents and returns the Telegram deep link embedding it.
func (s *ClaimService) CreateClaim(ctx context.Context, userID, agentID string) (*ClaimLink, error) {
	agent, err := s.agentRepo.FindByIDAndUserID(ctx, agentID, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if agent == nil {
		return nil, apperrors.NotFound("Agent")
	}

	claimToken, err := util.GenerateToken(config.ClaimTokenBytes)
	if err != nil {
		return nil, apperrors.Internal("failed to generate claim token").WithCause(err)
	}

	claim, err := s.claimRepo.Create(ctx, model.CreateClaimParams{
		AgentID:   agent.ID,
		Token:     claimToken,
		ExpiresAt: time.Now().Add(config.ClaimTTL),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventClaimCreate,
		UserID:  userID,
		AgentID: agent.ID,
		Details: map[string]interface{}{"token": util.MaskToken(claimToken)},
	})
	log.Info().
		Str("agentId", agent.ID).
		Str("token", util.MaskToken(claimToken)).
		Time("expiresAt", claim.ExpiresAt).
		Msg("binding claim created")

	return &ClaimLink{
		DeepLink:  fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, claimToken),
		ExpiresAt: claim.ExpiresAt,
	}, nil
}

// ResolveClaim consumes a claim presented by the channel bot and binds the
// channel user to the claim's agent.
//
// Ordering is deliberate: binding upsert, then gateway registration, then
// claim deletion. A gateway failure leaves the claim in place so the bot can
// retry with the same token inside the expiry window; the binding upsert is
// idempotent so the retry converges on one row.
func (s *ClaimService) ResolveClaim(ctx context.Context, claimToken, channelUserID string) error {
	claim, err := s.claimRepo.FindValidByToken(ctx, claimToken)
	if err != nil {
		return apperrors.Database(err)
	}
	if claim == nil {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventClaimRejected,
			Details: map[string]interface{}{"token": util.MaskToken(claimToken)},
		})
		return apperrors.InvalidClaim()
	}

	if err := s.bindingRepo.Upsert(ctx, model.CreateBindingParams{
		UserID:        claim.UserID,
		AgentID:       claim.AgentID,
		ChannelType:   model.ChannelTelegram,
		ChannelUserID: channelUserID,
	}); err != nil {
		return apperrors.Database(err)
	}

	if s.gateway != nil && !IsDemoPlaceholder(claim.GatewayAgentID) {
		if err := s.gateway.BindChannel(ctx, claim.GatewayAgentID, model.ChannelTelegram, channelUserID); err != nil {
			log.Error().
				Err(err).
				Str("agentId", claim.AgentID).
				Msg("gateway binding failed; claim preserved for retry")
			return err
		}
	}

	// The delete is also the single-use gate: zero rows deleted means a
	// concurrent resolve consumed this token first, and only the winner may
	// report success. A delete error, by contrast, is tolerated; expiry
	// filtering rejects the token once the window closes.
	consumed, err := s.claimRepo.Consume(ctx, claimToken)
	if err != nil {
		log.Warn().
			Err(err).
			Str("token", util.MaskToken(claimToken)).
			Msg("claim delete failed after successful binding")
	} else if !consumed {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventClaimRejected,
			UserID:  claim.UserID,
			AgentID: claim.AgentID,
			Details: map[string]interface{}{
				"token":  util.MaskToken(claimToken),
				"reason": "consumed by concurrent resolve",
			},
		})
		return apperrors.InvalidClaim()
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventClaimConsume,
		UserID:  claim.UserID,
		AgentID: claim.AgentID,
		Details: map[string]interface{}{
			"channelUserId": channelUserID,
			"consumed":      consumed,
		},
	})
	log.Info().
		Str("agentId", claim.AgentID).
		Str("channelUserId", channelUserID).
		Msg("channel bound to agent")

	return nil
}
