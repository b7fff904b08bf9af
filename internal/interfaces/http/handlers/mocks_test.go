package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/community-intelligence/internal/application/intelligence"
)

// --- Mock Services ---

type mockOverviewService struct {
	mock.Mock
}

func (m *mockOverviewService) Build(ctx context.Context) (*intelligence.OverviewPayload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intelligence.OverviewPayload), args.Error(1)
}

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) Respond(ctx context.Context, message string) (*intelligence.ChatReply, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intelligence.ChatReply), args.Error(1)
}
