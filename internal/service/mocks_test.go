package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openclaw/agent-console-go/internal/gateway"
	"github.com/openclaw/agent-console-go/internal/model"
)

type mockAgentRepo struct {
	mock.Mock
}

func (m *mockAgentRepo) FindByUserID(ctx context.Context, userID string) (*model.Agent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *mockAgentRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Agent, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *mockAgentRepo) Create(ctx context.Context, params model.CreateAgentParams) (*model.Agent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

type mockClaimRepo struct {
	mock.Mock
}

func (m *mockClaimRepo) Create(ctx context.Context, params model.CreateClaimParams) (*model.BindingClaim, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BindingClaim), args.Error(1)
}

func (m *mockClaimRepo) FindValidByToken(ctx context.Context, token string) (*model.ClaimWithAgent, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimWithAgent), args.Error(1)
}

func (m *mockClaimRepo) Consume(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockClaimRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockBindingRepo struct {
	mock.Mock
}

func (m *mockBindingRepo) Upsert(ctx context.Context, params model.CreateBindingParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockBindingRepo) FindByAgentID(ctx context.Context, agentID string) ([]model.AgentBinding, error) {
	args := m.Called(ctx, agentID)
	return args.Get(0).([]model.AgentBinding), args.Error(1)
}

func (m *mockBindingRepo) CountByAgentID(ctx context.Context, agentID string) (int, error) {
	args := m.Called(ctx, agentID)
	return args.Int(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateAgent(ctx context.Context, userID string) (*gateway.AgentIdentity, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.AgentIdentity), args.Error(1)
}

func (m *mockGateway) BindChannel(ctx context.Context, agentID, channelType, channelUserID string) error {
	args := m.Called(ctx, agentID, channelType, channelUserID)
	return args.Error(0)
}
