package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openclaw/agent-console-go/internal/gateway"
	"github.com/openclaw/agent-console-go/internal/middleware"
	"github.com/openclaw/agent-console-go/internal/model"
)

// In-memory repositories mirroring the Postgres conflict semantics, shared by
// the handler tests so claim and webhook flows can run end to end.

type memAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*model.Agent
	seq    int
}

func newMemAgentRepo() *memAgentRepo {
	return &memAgentRepo{agents: make(map[string]*model.Agent)}
}

func (r *memAgentRepo) FindByUserID(ctx context.Context, userID string) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.UserID == userID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memAgentRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok && a.UserID == userID {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *memAgentRepo) Create(ctx context.Context, params model.CreateAgentParams) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.UserID == params.UserID {
			return nil, nil
		}
	}
	r.seq++
	a := &model.Agent{
		ID:                 fmt.Sprintf("agent-%d", r.seq),
		UserID:             params.UserID,
		GatewayAgentID:     params.GatewayAgentID,
		GatewayWorkspaceID: params.GatewayWorkspaceID,
		CreatedAt:          time.Now(),
	}
	r.agents[a.ID] = a
	copied := *a
	return &copied, nil
}

type memClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*model.BindingClaim
	agents *memAgentRepo
}

func newMemClaimRepo(agents *memAgentRepo) *memClaimRepo {
	return &memClaimRepo{claims: make(map[string]*model.BindingClaim), agents: agents}
}

func (r *memClaimRepo) Create(ctx context.Context, params model.CreateClaimParams) (*model.BindingClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &model.BindingClaim{
		ID:        fmt.Sprintf("claim-%d", len(r.claims)+1),
		AgentID:   params.AgentID,
		Token:     params.Token,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now(),
	}
	r.claims[params.Token] = c
	copied := *c
	return &copied, nil
}

func (r *memClaimRepo) FindValidByToken(ctx context.Context, token string) (*model.ClaimWithAgent, error) {
	r.mu.Lock()
	c, ok := r.claims[token]
	r.mu.Unlock()
	if !ok || time.Now().After(c.ExpiresAt) {
		return nil, nil
	}

	r.agents.mu.Lock()
	agent, ok := r.agents.agents[c.AgentID]
	r.agents.mu.Unlock()
	if !ok {
		return nil, nil
	}

	return &model.ClaimWithAgent{
		BindingClaim:   *c,
		UserID:         agent.UserID,
		GatewayAgentID: agent.GatewayAgentID,
	}, nil
}

func (r *memClaimRepo) Consume(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[token]; !ok {
		return false, nil
	}
	delete(r.claims, token)
	return true, nil
}

func (r *memClaimRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, c := range r.claims {
		if time.Now().After(c.ExpiresAt) {
			delete(r.claims, token)
			n++
		}
	}
	return n, nil
}

type memBindingRepo struct {
	mu       sync.Mutex
	bindings []model.AgentBinding
}

func (r *memBindingRepo) Upsert(ctx context.Context, params model.CreateBindingParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bindings {
		if b.AgentID == params.AgentID && b.ChannelType == params.ChannelType && b.ChannelUserID == params.ChannelUserID {
			return nil
		}
	}
	r.bindings = append(r.bindings, model.AgentBinding{
		ID:            fmt.Sprintf("binding-%d", len(r.bindings)+1),
		UserID:        params.UserID,
		AgentID:       params.AgentID,
		ChannelType:   params.ChannelType,
		ChannelUserID: params.ChannelUserID,
		CreatedAt:     time.Now(),
	})
	return nil
}

func (r *memBindingRepo) FindByAgentID(ctx context.Context, agentID string) ([]model.AgentBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AgentBinding
	for _, b := range r.bindings {
		if b.AgentID == agentID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBindingRepo) CountByAgentID(ctx context.Context, agentID string) (int, error) {
	bindings, _ := r.FindByAgentID(ctx, agentID)
	return len(bindings), nil
}

type stubGateway struct {
	mu        sync.Mutex
	bindErr   error
	bindCalls int
}

func (g *stubGateway) CreateAgent(ctx context.Context, userID string) (*gateway.AgentIdentity, error) {
	return &gateway.AgentIdentity{AgentID: "gw-agent-1", WorkspaceID: "gw-ws-1"}, nil
}

func (g *stubGateway) BindChannel(ctx context.Context, agentID, channelType, channelUserID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindCalls++
	return g.bindErr
}

func (g *stubGateway) setBindErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindErr = err
}

func withUser(r *http.Request, user *model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey, user)
	return r.WithContext(ctx)
}
