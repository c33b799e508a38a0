package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"github.com/smallbiznis/hireledger/pkg/db/pagination"
)

type listUnlocksQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (s *Server) ListRecruiterUnlocks(c *gin.Context) {
	recruiterID, err := parseRecruiterParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query listUnlocksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.ListByRecruiter(c.Request.Context(), ledgerdomain.ListRequest{
		RecruiterID: recruiterID,
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}

// activeSubscriptionResponse reports the subscription granting quota now and
// how much of the recruiter's lifetime quota it leaves.
type activeSubscriptionResponse struct {
	Subscription subscriptiondomain.SubscriptionView `json:"subscription"`
	PackName     string                              `json:"pack_name"`
	Used         int64                               `json:"used"`
	Limit        int64                               `json:"limit"`
	Remaining    int64                               `json:"remaining"`
}

func (s *Server) GetActiveSubscription(c *gin.Context) {
	recruiterID, err := parseRecruiterParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	sub, err := s.subscriptionSvc.GetActiveSubscription(ctx, recruiterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return
	}

	pack, err := s.packSvc.GetPack(ctx, sub.PackID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	used, err := s.ledgerSvc.CountUnlocked(ctx, recruiterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := int64(pack.ProfileLimit)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{"data": activeSubscriptionResponse{
		Subscription: subscriptiondomain.SubscriptionView{
			Subscription:    *sub,
			EffectiveStatus: subscriptiondomain.SubscriptionStatusActive,
		},
		PackName:  pack.Name,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}})
}

func (s *Server) ListRecruiterSubscriptions(c *gin.Context) {
	recruiterID, err := parseRecruiterParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subs, err := s.subscriptionSvc.ListByRecruiter(c.Request.Context(), recruiterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (s *Server) ListRecruiterPayments(c *gin.Context) {
	recruiterID, err := parseRecruiterParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.reconciler.ListPayments(c.Request.Context(), recruiterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}
