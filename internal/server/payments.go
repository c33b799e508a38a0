package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
)

const maxWebhookPayloadBytes = 1 << 20

type reconcilePaymentRequest struct {
	TransactionID string          `json:"transaction_id"`
	RecruiterID   int64           `json:"recruiter_id"`
	PackID        string          `json:"pack_id"`
	Pack          string          `json:"pack"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	PaidAt        time.Time       `json:"paid_at"`
}

// ReconcilePayment accepts a confirmed payment from a trusted caller. The
// pack may be named by id or by name.
func (s *Server) ReconcilePayment(c *gin.Context) {
	var req reconcilePaymentRequest
	limitBody(c, maxJSONBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bodyError(err))
		return
	}

	packID, err := s.resolvePackID(c, req.PackID, req.Pack)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.reconciler.ReconcilePayment(c.Request.Context(), paymentdomain.ReconcileRequest{
		TransactionID: strings.TrimSpace(req.TransactionID),
		RecruiterID:   req.RecruiterID,
		PackID:        packID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		PaidAt:        req.PaidAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == paymentdomain.OutcomeAlreadyReconciled {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": result})
}

func (s *Server) resolvePackID(c *gin.Context, rawID, name string) (snowflake.ID, error) {
	if strings.TrimSpace(rawID) != "" {
		id, err := parseSnowflakeID(rawID)
		if err != nil {
			return 0, paymentdomain.ErrInvalidPack
		}
		return id, nil
	}

	name = packdomain.NormalizeName(name)
	if name == "" {
		return 0, paymentdomain.ErrInvalidPack
	}
	if !packdomain.IsKnownName(name) {
		return 0, packdomain.ErrPackNotFound
	}
	pack, err := s.packSvc.GetByName(c.Request.Context(), name)
	if err != nil {
		return 0, err
	}
	return pack.ID, nil
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	limitBody(c, maxWebhookPayloadBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, bodyError(err))
		return
	}

	result, err := s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored", "delivery_id": result.DeliveryID})
			return
		}
		AbortWithError(c, err)
		return
	}

	status := "ok"
	if result.Ignored {
		status = "ignored"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "data": result})
}
