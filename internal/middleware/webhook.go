package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/audit"
	"github.com/openclaw/agent-console-go/internal/util"
)

// WebhookSecretHeader is the shared-secret header the bot relay sends with
// every webhook call.
const WebhookSecretHeader = "X-Webhook-Secret"

type WebhookSecretMiddleware struct {
	secret string
}

func NewWebhookSecretMiddleware(secret string) *WebhookSecretMiddleware {
	return &WebhookSecretMiddleware{secret: secret}
}

func (m *WebhookSecretMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("webhook secret verification bypassed: TELEGRAM_WEBHOOK_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(WebhookSecretHeader)
		if provided == "" || !util.ConstantTimeEqual(provided, m.secret) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventWebhookAuthFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid webhook secret",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
