package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/middleware"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

type MockWizard struct {
	mock.Mock
}

func (m *MockWizard) Advance(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.AdvanceResponse, error) {
	args := m.Called(ctx, caller, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdvanceResponse), args.Error(1)
}

func (m *MockWizard) Quote(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.FareQuote, error) {
	args := m.Called(ctx, caller, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FareQuote), args.Error(1)
}

type MockCommitter struct {
	mock.Mock
}

func (m *MockCommitter) Commit(ctx context.Context, req *models.CommitRequest) (*models.CommitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommitResponse), args.Error(1)
}

func (m *MockCommitter) GetAttemptStatus(ctx context.Context, key string) (*models.AttemptStatusResponse, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptStatusResponse), args.Error(1)
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) ListActive(ctx context.Context, identity models.Identity) ([]models.Subscription, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// withIdentity stands in for the auth middleware
func withIdentity(identity models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityContextKey, identity)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
