package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/service"
	"github.com/openclaw/agent-console-go/internal/util"
)

type WebhookHandler struct {
	claimService *service.ClaimService
}

func NewWebhookHandler(claimService *service.ClaimService) *WebhookHandler {
	return &WebhookHandler{claimService: claimService}
}

// Both field spellings are live: the bot relay sends telegramUserId, older
// integrations send channelUserId.
type telegramWebhookRequest struct {
	Token          string `json:"token"`
	TelegramUserID string `json:"telegramUserId"`
	ChannelUserID  string `json:"channelUserId"`
}

func (r *telegramWebhookRequest) channelUser() string {
	if r.TelegramUserID != "" {
		return r.TelegramUserID
	}
	return r.ChannelUserID
}

// POST /api/telegram/webhook
//
// Called by the bot relay when a Telegram user opens the deep link. The relay
// retries on 500, so a gateway failure must not consume the claim.
func (h *WebhookHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req telegramWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	if req.Token == "" || req.channelUser() == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token and telegramUserId are required"})
		return
	}

	if err := h.claimService.ResolveClaim(ctx, req.Token, req.channelUser()); err != nil {
		log.Warn().
			Err(err).
			Str("token", util.MaskToken(req.Token)).
			Msg("telegram claim resolution failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
