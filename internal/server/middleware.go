package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	obscontext "github.com/smallbiznis/hireledger/internal/observability/context"
	"github.com/smallbiznis/hireledger/internal/observability/logger"
	"github.com/smallbiznis/hireledger/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	HeaderInternalToken = "X-Internal-Token"

	maxJSONBodyBytes = 64 << 10
)

// limitBody caps the request body. Reads past limit fail with
// *http.MaxBytesError.
func limitBody(c *gin.Context, limit int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}

// InternalTokenRequired guards routes that accept trusted input, such as
// payment confirmations.
func (s *Server) InternalTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderInternalToken))
		if token == "" || !s.verifier.Verify(c.Request.Context(), token) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeInternal), "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UnlockRateLimit throttles unlock attempts per recruiter. Requests whose
// body cannot be read pass through and fail validation in the handler.
func (s *Server) UnlockRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.unlockLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		recruiterID, err := readUnlockRecruiterID(c)
		if errors.Is(err, ErrPayloadTooLarge) {
			AbortWithError(c, err)
			return
		}
		if err != nil || recruiterID <= 0 {
			c.Next()
			return
		}

		res, err := s.unlockLimiter.AllowRecruiter(ctx, recruiterID)
		if err != nil {
			logger.FromContext(ctx).Warn("unlock rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("unlock rate limit exceeded", zap.Int64("recruiter_id", recruiterID))
			s.obsMetrics.RecordRateLimited(ctx, normalizeRateLimitEndpoint(c))

			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ratelimit.ErrRateLimited)
			return
		}
		c.Next()
	}
}

type unlockRateLimitKey struct {
	RecruiterID int64 `json:"recruiter_id"`
}

func readUnlockRecruiterID(c *gin.Context) (int64, error) {
	limitBody(c, maxJSONBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return 0, bodyError(err)
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return 0, nil
	}

	var payload unlockRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, nil
	}
	return payload.RecruiterID, nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
