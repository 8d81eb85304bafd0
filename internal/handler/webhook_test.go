package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/agent-console-go/internal/errors"
	"github.com/openclaw/agent-console-go/internal/model"
	"github.com/openclaw/agent-console-go/internal/service"
)

type webhookFixture struct {
	agentRepo    *memAgentRepo
	claimRepo    *memClaimRepo
	bindingRepo  *memBindingRepo
	gateway      *stubGateway
	claimService *service.ClaimService
	router       http.Handler
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	agentRepo := newMemAgentRepo()
	claimRepo := newMemClaimRepo(agentRepo)
	bindingRepo := &memBindingRepo{}
	gw := &stubGateway{}
	claimService := service.NewClaimService(claimRepo, agentRepo, bindingRepo, gw, testBotUsername)

	r := chi.NewRouter()
	r.Post("/api/telegram/webhook", NewWebhookHandler(claimService).Telegram)
	r.Post("/api/agents/{agentID}/telegram/claim", NewClaimHandler(claimService).Create)

	return &webhookFixture{
		agentRepo:    agentRepo,
		claimRepo:    claimRepo,
		bindingRepo:  bindingRepo,
		gateway:      gw,
		claimService: claimService,
		router:       r,
	}
}

func (f *webhookFixture) createAgent(t *testing.T, userID string) *model.Agent {
	t.Helper()
	agent, err := f.agentRepo.Create(context.Background(), model.CreateAgentParams{
		UserID:         userID,
		GatewayAgentID: "gw-agent-" + userID,
	})
	require.NoError(t, err)
	return agent
}

// createClaim drives the claim handler and extracts the token from the deep
// link, the same way the Telegram bot receives it.
func (f *webhookFixture) createClaim(t *testing.T, userID, agentID string) string {
	t.Helper()
	req := withUser(httptest.NewRequest("POST", "/api/agents/"+agentID+"/telegram/claim", nil), &model.User{ID: userID})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DeepLink string `json:"deepLink"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, token, ok := strings.Cut(resp.DeepLink, "?start=")
	require.True(t, ok)
	return token
}

func (f *webhookFixture) postWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTelegramWebhook(t *testing.T) {
	t.Run("binds the telegram user and consumes the claim", func(t *testing.T) {
		f := newWebhookFixture(t)
		agent := f.createAgent(t, "usr-1")
		token := f.createClaim(t, "usr-1", agent.ID)

		rec := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

		bindings, err := f.bindingRepo.FindByAgentID(context.Background(), agent.ID)
		require.NoError(t, err)
		require.Len(t, bindings, 1)
		assert.Equal(t, "tg-42", bindings[0].ChannelUserID)
		assert.Equal(t, model.ChannelTelegram, bindings[0].ChannelType)
		assert.Equal(t, "usr-1", bindings[0].UserID)
		assert.Equal(t, 1, f.gateway.bindCalls)

		// Consumed: replaying the same token is rejected.
		replay := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))
		assert.Equal(t, http.StatusBadRequest, replay.Code)
	})

	t.Run("accepts the channelUserId field spelling", func(t *testing.T) {
		f := newWebhookFixture(t)
		agent := f.createAgent(t, "usr-1")
		token := f.createClaim(t, "usr-1", agent.ID)

		rec := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"channelUserId":"tg-99"}`, token))

		require.Equal(t, http.StatusOK, rec.Code)
		bindings, err := f.bindingRepo.FindByAgentID(context.Background(), agent.ID)
		require.NoError(t, err)
		require.Len(t, bindings, 1)
		assert.Equal(t, "tg-99", bindings[0].ChannelUserID)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		f := newWebhookFixture(t)

		assert.Equal(t, http.StatusBadRequest, f.postWebhook(t, `{"telegramUserId":"tg-42"}`).Code)
		assert.Equal(t, http.StatusBadRequest, f.postWebhook(t, `{"token":"abc"}`).Code)
		assert.Equal(t, http.StatusBadRequest, f.postWebhook(t, `not json`).Code)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		f := newWebhookFixture(t)

		rec := f.postWebhook(t, `{"token":"0123456789abcdef","telegramUserId":"tg-42"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Code apperrors.ErrorCode `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.ErrCodeInvalidClaim, resp.Code)
	})

	t.Run("rejects an expired claim", func(t *testing.T) {
		f := newWebhookFixture(t)
		agent := f.createAgent(t, "usr-1")
		token := f.createClaim(t, "usr-1", agent.ID)

		f.claimRepo.mu.Lock()
		f.claimRepo.claims[token].ExpiresAt = time.Now().Add(-time.Second)
		f.claimRepo.mu.Unlock()

		rec := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		count, err := f.bindingRepo.CountByAgentID(context.Background(), agent.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("gateway failure returns 500 and preserves the claim for retry", func(t *testing.T) {
		f := newWebhookFixture(t)
		agent := f.createAgent(t, "usr-1")
		token := f.createClaim(t, "usr-1", agent.ID)

		f.gateway.setBindErr(apperrors.GatewayBindingFailed(503))
		rec := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		// An unreachable gateway answers the same way as a rejection.
		f.gateway.setBindErr(apperrors.GatewayBindingUnreachable(fmt.Errorf("dial tcp: connection refused")))
		down := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))
		require.Equal(t, http.StatusInternalServerError, down.Code)

		// The relay retries with the same token and now succeeds.
		f.gateway.setBindErr(nil)
		retry := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))
		require.Equal(t, http.StatusOK, retry.Code)

		count, err := f.bindingRepo.CountByAgentID(context.Background(), agent.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("binding the same telegram user twice stays idempotent", func(t *testing.T) {
		f := newWebhookFixture(t)
		agent := f.createAgent(t, "usr-1")

		for i := 0; i < 2; i++ {
			token := f.createClaim(t, "usr-1", agent.ID)
			rec := f.postWebhook(t, fmt.Sprintf(`{"token":%q,"telegramUserId":"tg-42"}`, token))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		count, err := f.bindingRepo.CountByAgentID(context.Background(), agent.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
