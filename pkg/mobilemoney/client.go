package mobilemoney

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDeclined is returned when the wallet holder or operator refused the charge
	ErrDeclined = errors.New("payment declined")

	// ErrTimeout is returned when the gateway did not answer in time
	ErrTimeout = errors.New("payment gateway timeout")

	// ErrInvalidNumber is returned when the operator does not know the wallet number
	ErrInvalidNumber = errors.New("invalid wallet number")

	// ErrNotConfigured is returned when merchant credentials are missing
	ErrNotConfigured = errors.New("payment gateway not configured: missing merchant credentials")
)

// Gateway statuses
const (
	StatusSuccess       = "SUCCESS"
	StatusDeclined      = "DECLINED"
	StatusInvalidNumber = "INVALID_NUMBER"
	StatusError         = "ERROR"
)

// Config holds the gateway endpoint and merchant credentials
type Config struct {
	BaseURL        string
	MerchantKey    string
	MerchantSecret string // used for the check value only, never sent
	Timeout        time.Duration
}

// Client charges mobile-money wallets (Wave, Orange Money, Free Money)
// through an aggregator gateway
type Client struct {
	config Config
	logger *logrus.Logger
	client *http.Client
}

// ChargeRequest is sent to the gateway's /charges endpoint
type ChargeRequest struct {
	MerchantKey string `json:"merchantKey"`
	InvoiceID   string `json:"invoiceId"`
	Provider    string `json:"provider"` // wave, orange_money, free_money
	MSISDN      string `json:"msisdn"`   // +221XXXXXXXXX
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	CheckValue  string `json:"checkValue"`
}

// ChargeResponse is the gateway's answer
type ChargeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	InvoiceID     string `json:"invoiceId"`
	Amount        int64  `json:"amount"`
	Message       string `json:"message,omitempty"`
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// GenerateCheckValue creates the SHA-512 check value authenticating a charge
// hash1 = SHA512(merchantSecret) uppercase hex
// checkValue = SHA512("merchantKey|invoiceId|amount|currency|hash1") uppercase hex
func (c *Client) GenerateCheckValue(invoiceID string, amount int64, currency string) string {
	hash1 := sha512.Sum512([]byte(c.config.MerchantSecret))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%d|%s|%s", c.config.MerchantKey, invoiceID, amount, currency, hash1Hex)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// Charge debits the wallet synchronously. It never retries: a timeout is
// surfaced as ErrTimeout and the caller decides.
func (c *Client) Charge(ctx context.Context, provider, msisdn string, amount int64, currency, invoiceID string) (*ChargeResponse, error) {
	if c.config.MerchantKey == "" || c.config.MerchantSecret == "" {
		return nil, ErrNotConfigured
	}

	request := &ChargeRequest{
		MerchantKey: c.config.MerchantKey,
		InvoiceID:   invoiceID,
		Provider:    provider,
		MSISDN:      msisdn,
		Amount:      amount,
		Currency:    currency,
		Description: "Ferry booking " + invoiceID,
		CheckValue:  c.GenerateCheckValue(invoiceID, amount, currency),
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpointURL := strings.TrimRight(c.config.BaseURL, "/") + "/charges"

	c.logger.WithFields(logrus.Fields{
		"invoice_id": invoiceID,
		"provider":   provider,
		"amount":     amount,
		"currency":   currency,
	}).Info("Initiating mobile money charge")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.WithField("invoice_id", invoiceID).Warn("Mobile money gateway timed out")
			return nil, ErrTimeout
		}
		c.logger.WithError(err).Error("Failed to call mobile money gateway")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"invoice_id":  invoiceID,
	}).Debug("Mobile money gateway response received")

	if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
		return nil, ErrTimeout
	}

	var chargeResp ChargeResponse
	if err := json.Unmarshal(body, &chargeResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	switch strings.ToUpper(chargeResp.Status) {
	case StatusSuccess:
		if chargeResp.TransactionID == "" {
			return nil, fmt.Errorf("payment gateway returned success without a transaction id")
		}
		c.logger.WithFields(logrus.Fields{
			"invoice_id":     invoiceID,
			"transaction_id": chargeResp.TransactionID,
		}).Info("Mobile money charge succeeded")
		return &chargeResp, nil
	case StatusDeclined:
		return &chargeResp, fmt.Errorf("%w: %s", ErrDeclined, chargeResp.Message)
	case StatusInvalidNumber:
		return &chargeResp, fmt.Errorf("%w: %s", ErrInvalidNumber, chargeResp.Message)
	}

	errMsg := chargeResp.Message
	if errMsg == "" {
		errMsg = fmt.Sprintf("status=%s, http=%d", chargeResp.Status, resp.StatusCode)
	}
	return &chargeResp, fmt.Errorf("payment gateway error: %s", errMsg)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
