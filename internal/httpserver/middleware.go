package httpserver

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"mushroom-dashboard/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const requestIDHeader = "X-Request-Id"

var errUnauthorized = errors.New("unauthorized")

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// requestLogger logs each request with its correlation id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("access")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.String("error", last.Error()))
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// errorMiddleware renders the last handler error unless a response was already written.
func errorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		if last == nil {
			return
		}
		status, payload := mapError(last.Err)
		if status == http.StatusInternalServerError {
			logger.Error("unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(last.Err))
			payload.Message = "internal error"
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "missing or invalid admin token"}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorPayload{Type: "invalid_input", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrNoRewardsAvailable):
		return http.StatusConflict, errorPayload{Type: "no_rewards_available", Message: err.Error()}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "storage_unavailable", Message: "storage temporarily unavailable"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: err.Error()}
	}
}

// adminAuth requires "Authorization: Bearer <token>". A bcrypt hash takes precedence
// over the plain token. With neither configured every request is rejected.
func adminAuth(token, hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		presented = strings.TrimSpace(presented)
		if !ok || presented == "" || !tokenMatches(presented, token, hash) {
			abortWithError(c, errUnauthorized)
			return
		}
		c.Next()
	}
}

func tokenMatches(presented, token, hash string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}
