package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookSecretMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allows request with correct secret", func(t *testing.T) {
		middleware := NewWebhookSecretMiddleware("hook-secret")
		handler := middleware.Handler(okHandler)

		req := httptest.NewRequest("POST", "/api/telegram/webhook", nil)
		req.Header.Set(WebhookSecretHeader, "hook-secret")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects request with missing secret", func(t *testing.T) {
		middleware := NewWebhookSecretMiddleware("hook-secret")
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("POST", "/api/telegram/webhook", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects request with wrong secret", func(t *testing.T) {
		middleware := NewWebhookSecretMiddleware("hook-secret")
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("POST", "/api/telegram/webhook", nil)
		req.Header.Set(WebhookSecretHeader, "guessed")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bypasses verification when unconfigured", func(t *testing.T) {
		middleware := NewWebhookSecretMiddleware("")
		handler := middleware.Handler(okHandler)

		req := httptest.NewRequest("POST", "/api/telegram/webhook", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
