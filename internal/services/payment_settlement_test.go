package services

import (
	"context"
	"errors"
	"testing"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/mobilemoney"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPaymentSettlement_Cash(t *testing.T) {
	gateway := new(MockPaymentGateway)
	settlement := NewPaymentSettlement(gateway, "XOF", testLogger())

	result, err := settlement.Charge(context.Background(), models.PaymentCash, "", 3000, "3f2a9c1e-77aa-4b6e-9d21-0c5e8a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, "CASH-3F2A9C1E77AA", result.Reference)
	assert.Equal(t, int64(3000), result.Amount)
	assert.Equal(t, models.PaymentCash, result.Method)
	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentSettlement_MobileMoney(t *testing.T) {
	ctx := context.Background()
	gateway := new(MockPaymentGateway)
	settlement := NewPaymentSettlement(gateway, "XOF", testLogger())

	gateway.On("Charge", ctx, "wave", "+221771234567", int64(2000), "XOF", "attempt-1").
		Return(&mobilemoney.ChargeResponse{Status: mobilemoney.StatusSuccess, TransactionID: "WV-889", Amount: 2000}, nil).Once()

	result, err := settlement.Charge(ctx, models.PaymentWave, "77 123 45 67", 2000, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "WV-889", result.Reference)
	assert.Equal(t, int64(2000), result.Amount)
	gateway.AssertExpectations(t)
}

func TestPaymentSettlement_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		method     models.PaymentMethod
		phone      string
		gatewayErr error
		wantKind   models.PaymentErrorKind
	}{
		{name: "Declined", method: models.PaymentOrangeMoney, phone: "771234567", gatewayErr: mobilemoney.ErrDeclined, wantKind: models.PaymentDeclined},
		{name: "Timeout", method: models.PaymentWave, phone: "771234567", gatewayErr: mobilemoney.ErrTimeout, wantKind: models.PaymentTimeout},
		{name: "Deadline", method: models.PaymentWave, phone: "771234567", gatewayErr: context.DeadlineExceeded, wantKind: models.PaymentTimeout},
		{name: "Gateway Rejects Number", method: models.PaymentFreeMoney, phone: "761234567", gatewayErr: mobilemoney.ErrInvalidNumber, wantKind: models.PaymentInvalidNumber},
		{name: "Unexpected", method: models.PaymentWave, phone: "771234567", gatewayErr: errors.New("502 bad gateway"), wantKind: models.PaymentGatewayError},
		{name: "Malformed Number", method: models.PaymentWave, phone: "12345", wantKind: models.PaymentInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockPaymentGateway)
			if tt.gatewayErr != nil {
				gateway.On("Charge", ctx, string(tt.method), mock.Anything, int64(1500), "XOF", "attempt-1").
					Return(nil, tt.gatewayErr).Once()
			}
			settlement := NewPaymentSettlement(gateway, "XOF", testLogger())

			result, err := settlement.Charge(ctx, tt.method, tt.phone, 1500, "attempt-1")
			assert.Nil(t, result)
			var payErr *models.PaymentError
			require.ErrorAs(t, err, &payErr)
			assert.Equal(t, tt.wantKind, payErr.Kind)
			gateway.AssertExpectations(t)
		})
	}
}

func TestPaymentSettlement_NoGatewayConfigured(t *testing.T) {
	settlement := NewPaymentSettlement(nil, "", testLogger())
	assert.Equal(t, "XOF", settlement.Currency())

	_, err := settlement.Charge(context.Background(), models.PaymentWave, "771234567", 1500, "attempt-1")
	var payErr *models.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, models.PaymentGatewayError, payErr.Kind)
	assert.ErrorIs(t, err, mobilemoney.ErrNotConfigured)
}

func TestPaymentSettlement_UnsupportedMethod(t *testing.T) {
	settlement := NewPaymentSettlement(new(MockPaymentGateway), "XOF", testLogger())

	_, err := settlement.Charge(context.Background(), models.PaymentMethod("cheque"), "", 1500, "attempt-1")
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
