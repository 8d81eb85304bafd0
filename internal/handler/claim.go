package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/middleware"
	"github.com/openclaw/agent-console-go/internal/service"
)

type ClaimHandler struct {
	claimService *service.ClaimService
}

func NewClaimHandler(claimService *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// POST /api/agents/{agentID}/telegram/claim
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUser(ctx)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Agent id is required"})
		return
	}

	link, err := h.claimService.CreateClaim(ctx, user.ID, agentID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Str("agentId", agentID).Msg("failed to create binding claim")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}
