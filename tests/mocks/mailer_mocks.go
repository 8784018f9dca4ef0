package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
)

// MockMailer implements mailer.Mailer
type MockMailer struct {
	mock.Mock
}

// Send delivers one outbound email and returns the provider message id
func (m *MockMailer) Send(ctx context.Context, params mailer.SendParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

// FetchReceivedBody retrieves the body content for an inbound message
func (m *MockMailer) FetchReceivedBody(ctx context.Context, emailID string) (*mailer.ReceivedBody, error) {
	args := m.Called(ctx, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mailer.ReceivedBody), args.Error(1)
}
