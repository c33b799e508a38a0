package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/hireledger/internal/entitlement/domain"
	obstracing "github.com/smallbiznis/hireledger/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
)

type unlockRequest struct {
	RecruiterID int64 `json:"recruiter_id"`
	CandidateID int64 `json:"candidate_id"`
}

type quotaExceededPayload struct {
	errorPayload
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

func (s *Server) RequestUnlock(c *gin.Context) {
	var req unlockRequest
	limitBody(c, maxJSONBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bodyError(err))
		return
	}

	result, err := s.entitlementSvc.RequestUnlock(c.Request.Context(), entitlementdomain.UnlockRequest{
		RecruiterID: req.RecruiterID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	obstracing.SetAttributes(c.Request.Context(),
		attribute.Int64("hireledger.recruiter_id", req.RecruiterID),
		attribute.String("hireledger.unlock_outcome", string(result.Outcome)),
	)

	switch result.Outcome {
	case entitlementdomain.OutcomeUnlocked, entitlementdomain.OutcomeAlreadyUnlocked:
		c.JSON(http.StatusOK, gin.H{"data": result})
	case entitlementdomain.OutcomeSubscriptionRequired:
		c.JSON(http.StatusPaymentRequired, errorResponse{Error: errorPayload{
			Type:    "subscription_required",
			Message: "an active subscription is required to unlock candidate profiles",
		}})
	case entitlementdomain.OutcomeQuotaExceeded:
		c.JSON(http.StatusForbidden, gin.H{"error": quotaExceededPayload{
			errorPayload: errorPayload{
				Type:    "quota_exceeded",
				Message: fmt.Sprintf("profile unlock limit reached (%d/%d), upgrade your pack to unlock more candidates", result.Used, result.Limit),
			},
			Used:  result.Used,
			Limit: result.Limit,
		}})
	default:
		AbortWithError(c, ErrInternal)
	}
}
