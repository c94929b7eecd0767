package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/usecase"
)

// AccountFetcher serves the mirrored account list
type AccountFetcher interface {
	FetchAll(ctx context.Context, syncFirst bool) ([]*entity.Account, error)
}

// LoginService authenticates API users
type LoginService interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// SyncTrigger fires a sync cycle, reporting whether one actually ran
type SyncTrigger interface {
	Sync(ctx context.Context) bool
}

// Handlers contains the HTTP handlers for the account API
type Handlers struct {
	accounts AccountFetcher
	auth     LoginService
	sync     SyncTrigger
	logger   *zap.Logger

	serviceName    string
	serviceVersion string
}

// NewHandlers creates the API handlers
func NewHandlers(
	accounts AccountFetcher,
	auth LoginService,
	sync SyncTrigger,
	serviceName, serviceVersion string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		accounts:       accounts,
		auth:           auth,
		sync:           sync,
		logger:         logger,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
	}
}

// HealthCheck returns service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"version": h.serviceVersion,
	})
}

// Login authenticates a user and issues a bearer token
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
			Code:    "INVALID_REQUEST_BODY",
		})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid username or password",
				Code:    "INVALID_CREDENTIALS",
			})
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_server_error",
			Message: "Failed to process login",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Username: req.Username,
		Token:    token,
	})
}

// ListAccounts returns every mirrored account. With ?sync=true a sync cycle
// runs before the read; if one is already in flight the read proceeds
// immediately.
func (h *Handlers) ListAccounts(c *gin.Context) {
	syncFirst := c.Query("sync") == "true"

	accounts, err := h.accounts.FetchAll(c.Request.Context(), syncFirst)
	if err != nil {
		h.logger.Error("Failed to list accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_server_error",
			Message: "Failed to retrieve accounts",
		})
		return
	}

	c.JSON(http.StatusOK, toAccountListResponse(accounts))
}

// TriggerSync fires a sync cycle on demand. The trigger is rejected softly
// when a cycle is already running.
func (h *Handlers) TriggerSync(c *gin.Context) {
	if h.sync.Sync(c.Request.Context()) {
		c.JSON(http.StatusOK, SyncResponse{
			Triggered: true,
			Message:   "Sync cycle completed",
		})
		return
	}

	c.JSON(http.StatusConflict, SyncResponse{
		Triggered: false,
		Message:   "Sync already in progress",
	})
}
