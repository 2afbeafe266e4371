package mobilemoney

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(Config{
		BaseURL:        server.URL,
		MerchantKey:    "mk_test",
		MerchantSecret: "ms_test",
		Timeout:        timeout,
	}, logger)
}

func TestCharge_Success(t *testing.T) {
	var received ChargeRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(ChargeResponse{Status: "SUCCESS", TransactionID: "WV-998877", InvoiceID: received.InvoiceID, Amount: received.Amount})
	}, time.Second)

	resp, err := client.Charge(context.Background(), "wave", "+221771234567", 3000, "XOF", "FB-ATTEMPT-1")
	require.NoError(t, err)
	assert.Equal(t, "WV-998877", resp.TransactionID)

	assert.Equal(t, "mk_test", received.MerchantKey)
	assert.Equal(t, "+221771234567", received.MSISDN)
	assert.Equal(t, int64(3000), received.Amount)
	assert.Equal(t, client.GenerateCheckValue("FB-ATTEMPT-1", 3000, "XOF"), received.CheckValue)
}

func TestCharge_GatewayOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"Declined", http.StatusOK, `{"status":"DECLINED","message":"insufficient balance"}`, ErrDeclined},
		{"Invalid Number", http.StatusOK, `{"status":"INVALID_NUMBER","message":"unknown msisdn"}`, ErrInvalidNumber},
		{"Gateway Timeout Status", http.StatusGatewayTimeout, ``, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, time.Second)

			_, err := client.Charge(context.Background(), "orange_money", "+221781234567", 1500, "XOF", "inv")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCharge_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}, time.Second)

	_, err := client.Charge(context.Background(), "wave", "+221771234567", 1500, "XOF", "inv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.NotErrorIs(t, err, ErrDeclined)
}

func TestCharge_ClientTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":"SUCCESS","transactionId":"late"}`))
	}, 50*time.Millisecond)

	_, err := client.Charge(context.Background(), "free_money", "+221761234567", 1500, "XOF", "inv")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCharge_NotConfigured(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"}, logrus.New())

	_, err := client.Charge(context.Background(), "wave", "+221771234567", 1500, "XOF", "inv")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateCheckValue_Deterministic(t *testing.T) {
	client := NewClient(Config{MerchantKey: "mk", MerchantSecret: "ms"}, logrus.New())

	a := client.GenerateCheckValue("inv-1", 1500, "XOF")
	b := client.GenerateCheckValue("inv-1", 1500, "XOF")
	c := client.GenerateCheckValue("inv-1", 1501, "XOF")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 128)
}
