// Package handler contains the Gin HTTP handlers: the SSE chat boundary,
// conversation CRUD, the model catalog, and health endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahtungko/aicbot/pkg/models"
)

// userIDKey is the gin context key set by the identity middleware.
const userIDKey = "userID"

// DefaultUserID is used when a request carries no X-User-ID header.
const DefaultUserID = "default-user"

// UserID returns the caller identity resolved by the identity middleware.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return DefaultUserID
}

// IdentityMiddleware resolves the caller's user id from the X-User-ID header.
// Authentication proper is out of scope; this is the stable-identifier stub.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = DefaultUserID
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrCodeValidation:
		return http.StatusBadRequest
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case models.ErrCodeModelNotFound, models.ErrCodeConversationNotFound:
		return http.StatusNotFound
	case models.ErrCodeManusAPIError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error envelope for non-SSE endpoints.
func respondError(c *gin.Context, code models.ErrorCode, message string) {
	c.JSON(statusForCode(code), models.APIResponse{
		Success:   false,
		Error:     &models.APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondFromError classifies err and writes the error envelope.
func respondFromError(c *gin.Context, err error) {
	respondError(c, models.CodeOf(err), models.MessageOf(err))
}
