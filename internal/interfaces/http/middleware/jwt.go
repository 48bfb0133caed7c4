package middleware

import (
	"errors"
	"strings"

	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ClaimsKey is the gin context key holding the verified *auth.Claims
const ClaimsKey = "auth_claims"

// TokenParser verifies bearer tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the
// claims for RequireScope
func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abort(c, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := tokens.Parse(token)
		if errors.Is(err, auth.ErrExpiredToken) {
			abort(c, dto.ErrCodeTokenExpired, "Token has expired")
			return
		}
		if err != nil {
			abort(c, dto.ErrCodeUnauthorized, "Invalid bearer token")
			return
		}

		c.Set(ClaimsKey, claims)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.String("auth.subject", claims.Subject))
		c.Next()
	}
}

// RequireScope answers 403 unless JWTAuth stored claims granting scope.
// It passes every request through when auth is disabled.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ClaimsKey)
		if !exists {
			c.Next()
			return
		}
		if claims, ok := value.(*auth.Claims); !ok || !claims.HasScope(scope) {
			abort(c, dto.ErrCodeForbidden, "Token lacks scope "+scope)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, code, message string) {
	requestID := logger.GetRequestID(c.Request.Context())
	if requestID == "" {
		requestID = c.GetHeader(logger.RequestIDHeader)
	}
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestID))
}
