package middleware

import (
	"net/http"

	"github.com/openclaw/agent-console-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
