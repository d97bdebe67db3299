package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/logger"
	"minischeduler/internal/metrics"
	"minischeduler/internal/models"
)

const (
	callerKey       = "caller"
	RequestIDHeader = "X-Request-ID"
)

// Authenticator resolves a login to a caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Caller, error)
}

type ctxKey struct{}

func ContextWithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(ctxKey{}).(models.Caller)
	return caller, ok
}

// Caller returns the identity BasicAuth stored on the request.
func Caller(c *gin.Context) (models.Caller, bool) {
	return CallerFromContext(c.Request.Context())
}

// Abort writes err as the standard error body.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), models.NewErrorResponse(err))
}

// CORS middleware for cross-origin requests
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RequestID propagates or assigns the request id used in every log line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = logger.NewRequestID()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger middleware for structured request logging
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			logFields = append(logFields, "error", c.Errors.String())
		}

		log := logger.WithContext(c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("Request completed with error", logFields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request rejected", logFields...)
		default:
			log.Info("Request completed", logFields...)
		}
	}
}

// Metrics records request counts and latency by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Recovery middleware that logs panics with request details
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithContext(c.Request.Context()).Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		if !c.Writer.Written() {
			Abort(c, apperrors.Storage("panic", nil))
			return
		}
		c.Abort()
	})
}

// BasicAuth authenticates the caller by HTTP Basic Auth, checking the
// credentials against the Valkey cache first, then the database.
func BasicAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="Restricted"`)
			Abort(c, apperrors.ErrUnauthorized)
			return
		}

		caller, err := auth.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthorized {
				c.Header("WWW-Authenticate", `Basic realm="Restricted"`)
			}
			Abort(c, err)
			return
		}

		ctx := ContextWithCaller(c.Request.Context(), caller)
		ctx = logger.ContextWithUserID(ctx, caller.UserID)
		c.Set(callerKey, caller)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole rejects authenticated callers without role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			Abort(c, apperrors.ErrUnauthorized)
			return
		}
		if caller.Role != role {
			Abort(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
