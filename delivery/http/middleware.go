package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator verifies a bearer token and returns the subject username
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// MiddlewareManager handles HTTP middleware for the account API
type MiddlewareManager struct {
	tokens TokenValidator
	logger *zap.Logger
}

// NewMiddlewareManager creates a new middleware manager
func NewMiddlewareManager(tokens TokenValidator, logger *zap.Logger) *MiddlewareManager {
	return &MiddlewareManager{
		tokens: tokens,
		logger: logger,
	}
}

// RequestID adds a unique request ID to each request
func (m *MiddlewareManager) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)

		c.Next()
	}
}

// RequestLogger logs HTTP requests with latency and status
func (m *MiddlewareManager) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		m.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

// ErrorHandler handles panics and converts them to 500 responses
func (m *MiddlewareManager) ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		m.logger.Error("Panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_server_error",
			Message: "An unexpected error occurred",
			Code:    "INTERNAL_ERROR",
		})
	})
}

// AuthenticationRequired validates the bearer token on protected routes
func (m *MiddlewareManager) AuthenticationRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header required",
				Code:    "MISSING_AUTH_HEADER",
			})
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format",
				Code:    "INVALID_AUTH_FORMAT",
			})
			return
		}

		username, err := m.tokens.ValidateToken(tokenParts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
				Code:    "INVALID_TOKEN",
			})
			return
		}

		c.Set("username", username)
		c.Next()
	}
}
