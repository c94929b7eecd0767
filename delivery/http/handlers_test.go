package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/config"
	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/usecase"
)

type fakeAccounts struct {
	accounts      []*entity.Account
	err           error
	syncRequested bool
}

func (f *fakeAccounts) FetchAll(ctx context.Context, syncFirst bool) ([]*entity.Account, error) {
	if syncFirst {
		f.syncRequested = true
	}
	return f.accounts, f.err
}

type fakeAuth struct {
	token string
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (string, error) {
	if username == "habib" && password == "s3cret" {
		return f.token, nil
	}
	return "", usecase.ErrInvalidCredentials
}

func (f *fakeAuth) ValidateToken(tokenString string) (string, error) {
	if tokenString == f.token {
		return "habib", nil
	}
	return "", usecase.ErrInvalidToken
}

type fakeSyncTrigger struct {
	busy bool
	runs int
}

func (f *fakeSyncTrigger) Sync(ctx context.Context) bool {
	if f.busy {
		return false
	}
	f.runs++
	return true
}

func newTestServer(t *testing.T, accounts *fakeAccounts, sync *fakeSyncTrigger) (*HTTPServer, *fakeAuth) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Service.Name = "drivesync"
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = "0"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	auth := &fakeAuth{token: "valid-token"}
	logger := zap.NewNop()
	handlers := NewHandlers(accounts, auth, sync, "drivesync", "1.0.0", logger)
	middleware := NewMiddlewareManager(auth, logger)

	return NewHTTPServer(cfg, handlers, middleware, prometheus.NewRegistry(), logger), auth
}

func doRequest(server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t, &fakeAccounts{}, &fakeSyncTrigger{})

	resp := doRequest(server, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "healthy")
}

func TestLogin(t *testing.T) {
	server, _ := newTestServer(t, &fakeAccounts{}, &fakeSyncTrigger{})

	t.Run("valid credentials", func(t *testing.T) {
		resp := doRequest(server, http.MethodPost, "/api/v1/auth/login", "",
			`{"username": "habib", "password": "s3cret"}`)
		require.Equal(t, http.StatusOK, resp.Code)

		var body LoginResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "habib", body.Username)
		assert.Equal(t, "valid-token", body.Token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		resp := doRequest(server, http.MethodPost, "/api/v1/auth/login", "",
			`{"username": "habib", "password": "wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := doRequest(server, http.MethodPost, "/api/v1/auth/login", "",
			`{"username": "habib"}`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestListAccountsRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t, &fakeAccounts{}, &fakeSyncTrigger{})

	t.Run("no header", func(t *testing.T) {
		resp := doRequest(server, http.MethodGet, "/api/v1/accounts", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		resp := doRequest(server, http.MethodGet, "/api/v1/accounts", "forged", "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set("Authorization", "Basic abc")
		recorder := httptest.NewRecorder()
		server.Router().ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestListAccounts(t *testing.T) {
	price := decimal.NullDecimal{Decimal: decimal.RequireFromString("12000.00"), Valid: true}
	date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	acctType := "Retail"

	accounts := &fakeAccounts{accounts: []*entity.Account{
		{
			ID:                 1,
			AcctID:             "A1",
			AcctType:           &acctType,
			ContractSalesPrice: price,
			ContractDate:       &date,
			CreatedAt:          time.Now(),
		},
		{ID: 2, AcctID: "A2", CreatedAt: time.Now()},
	}}
	server, _ := newTestServer(t, accounts, &fakeSyncTrigger{})

	resp := doRequest(server, http.MethodGet, "/api/v1/accounts", "valid-token", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body AccountListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Accounts, 2)

	first := body.Accounts[0]
	assert.Equal(t, "A1", first.AcctID)
	require.NotNil(t, first.ContractSalesPrice)
	assert.Equal(t, "12000", *first.ContractSalesPrice)
	require.NotNil(t, first.ContractDate)
	assert.Equal(t, "2024-01-15", *first.ContractDate)

	second := body.Accounts[1]
	assert.Nil(t, second.ContractSalesPrice)
	assert.Nil(t, second.ContractDate)
	assert.False(t, accounts.syncRequested)
}

func TestListAccountsWithSyncParam(t *testing.T) {
	accounts := &fakeAccounts{}
	server, _ := newTestServer(t, accounts, &fakeSyncTrigger{})

	resp := doRequest(server, http.MethodGet, "/api/v1/accounts?sync=true", "valid-token", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, accounts.syncRequested)
}

func TestListAccountsStorageFailure(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("db down")}
	server, _ := newTestServer(t, accounts, &fakeSyncTrigger{})

	resp := doRequest(server, http.MethodGet, "/api/v1/accounts", "valid-token", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestTriggerSync(t *testing.T) {
	t.Run("runs a cycle", func(t *testing.T) {
		trigger := &fakeSyncTrigger{}
		server, _ := newTestServer(t, &fakeAccounts{}, trigger)

		resp := doRequest(server, http.MethodPost, "/api/v1/sync", "valid-token", "")
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 1, trigger.runs)
	})

	t.Run("rejected while busy", func(t *testing.T) {
		trigger := &fakeSyncTrigger{busy: true}
		server, _ := newTestServer(t, &fakeAccounts{}, trigger)

		resp := doRequest(server, http.MethodPost, "/api/v1/sync", "valid-token", "")
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAccounts{}, &fakeSyncTrigger{})

		resp := doRequest(server, http.MethodPost, "/api/v1/sync", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeAccounts{}, &fakeSyncTrigger{})

	resp := doRequest(server, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}
