package services

import (
	"context"
	"io"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/mobilemoney"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider mocks IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockIdentityProvider) Login(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockIdentityProvider) RefreshToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPaymentGateway mocks PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, provider, msisdn string, amount int64, currency, invoiceID string) (*mobilemoney.ChargeResponse, error) {
	args := m.Called(ctx, provider, msisdn, amount, currency, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mobilemoney.ChargeResponse), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
