package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/tillway/internal/branchctx"
	"go.uber.org/zap"
)

const (
	HeaderBranch    = "X-Branch-ID"
	HeaderRequestID = "X-Request-ID"

	contextBranchIDKey = "branch_id"
)

// RequestLogger assigns a request ID and logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// BranchRequired resolves the operating branch from the X-Branch-ID header,
// falling back to the configured default branch. The resolved ID is stored on
// the request context; handlers read it back and pass it explicitly into
// service requests.
func (s *Server) BranchRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderBranch))
		if raw == "" && s.cfg.DefaultBranchID != 0 {
			raw = snowflake.ID(s.cfg.DefaultBranchID).String()
		}
		if raw == "" {
			AbortWithError(c, ErrBranchRequired)
			return
		}

		branchID, err := snowflake.ParseString(raw)
		if err != nil || branchID == 0 {
			AbortWithError(c, ErrBranchRequired)
			return
		}

		c.Set(contextBranchIDKey, branchID.String())
		c.Request = c.Request.WithContext(branchctx.WithBranchID(c.Request.Context(), branchID))
		c.Next()
	}
}

func (s *Server) branchID(c *gin.Context) string {
	if id, ok := branchctx.BranchIDFromContext(c.Request.Context()); ok {
		return id.String()
	}
	return c.GetString(contextBranchIDKey)
}

// SaleIngestRateLimit throttles sale creation per branch. Fails open when the
// limiter is not configured; fails closed when redis is unreachable.
func (s *Server) SaleIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.saleLimiter.Enabled() {
			c.Next()
			return
		}

		allowed, err := s.saleLimiter.AllowBranch(c.Request.Context(), s.branchID(c))
		if err != nil {
			s.log.Warn("sale rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
