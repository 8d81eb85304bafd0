package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Credential is one short-lived chat token bound to the caller's agent. A
// credential is used for a single connection attempt and never reused.
type Credential struct {
	Token   string `json:"token"`
	AgentID string `json:"agentId"`
}

// TokenSource produces a fresh credential per connection attempt.
type TokenSource interface {
	ChatToken(ctx context.Context) (*Credential, error)
}

// HTTPTokenSource fetches credentials from the console's chat-token endpoint.
// Header carries whatever the surrounding app uses for session auth.
type HTTPTokenSource struct {
	URL    string
	Header http.Header
	Client *http.Client
}

func (s *HTTPTokenSource) ChatToken(ctx context.Context) (*Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	for key, values := range s.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return nil, fmt.Errorf("token request failed: %s", body.Error)
		}
		return nil, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if cred.Token == "" || cred.AgentID == "" {
		return nil, fmt.Errorf("token response missing token or agentId")
	}
	return &cred, nil
}
