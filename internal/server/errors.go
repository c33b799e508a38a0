package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	entitlementdomain "github.com/smallbiznis/hireledger/internal/entitlement/domain"
	"github.com/smallbiznis/hireledger/internal/lock"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
	"github.com/smallbiznis/hireledger/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"github.com/smallbiznis/hireledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrPayloadTooLarge    = errors.New("payload_too_large")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

// bodyError maps a failed body read or decode. Bodies cut off by
// limitBody report ErrPayloadTooLarge.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
	}
	return invalidRequestError()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// errorClass maps a family of sentinel errors onto one HTTP response.
type errorClass struct {
	status  int
	typ     string
	message string
	errs    []error
}

// Checked in order. Anything unmatched is a 500.
var errorClasses = []errorClass{
	{http.StatusUnauthorized, "unauthorized", "unauthorized", []error{
		ErrUnauthorized,
		paymentdomain.ErrInvalidSignature,
	}},
	{http.StatusForbidden, "forbidden", "forbidden", []error{ErrForbidden}},
	{http.StatusConflict, "conflict", "conflict", []error{ErrConflict}},
	{http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", []error{ErrPayloadTooLarge}},
	{http.StatusNotFound, "not_found", "not found", []error{
		ErrNotFound,
		packdomain.ErrPackNotFound,
		subscriptiondomain.ErrSubscriptionNotFound,
		ledgerdomain.ErrEntryNotFound,
		paymentdomain.ErrPaymentNotFound,
		paymentdomain.ErrProviderNotFound,
		gorm.ErrRecordNotFound,
	}},
	{http.StatusTooManyRequests, "rate_limited", "too many requests", []error{ratelimit.ErrRateLimited}},
	{http.StatusServiceUnavailable, "service_unavailable", "service unavailable", []error{
		ErrServiceUnavailable,
		lock.ErrLockTimeout,
	}},
}

// Domain sentinels that describe bad input. Their text doubles as the
// validation code, so "invalid_candidate" reports field "candidate".
var validationSentinels = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	auditdomain.ErrInvalidAction,
	entitlementdomain.ErrInvalidRecruiter,
	entitlementdomain.ErrInvalidCandidate,
	ledgerdomain.ErrInvalidRecruiter,
	ledgerdomain.ErrInvalidCandidate,
	packdomain.ErrInvalidPackID,
	packdomain.ErrInvalidPackName,
	subscriptiondomain.ErrInvalidRecruiter,
	subscriptiondomain.ErrInvalidSubscription,
	paymentdomain.ErrInvalidTransactionID,
	paymentdomain.ErrInvalidRecruiter,
	paymentdomain.ErrInvalidPack,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidPaidAt,
	paymentdomain.ErrInvalidProvider,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
}

var validationMessages = map[string]string{
	"invalid_request":    "invalid request",
	"invalid_recruiter":  "recruiter_id must be a positive integer",
	"invalid_candidate":  "candidate_id must be a positive integer",
	"invalid_page_token": "page_token is malformed",
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if sentinel := matchAny(err, validationSentinels); sentinel != nil {
		code := sentinel.Error()
		message, ok := validationMessages[code]
		if !ok {
			message = "invalid value"
		}
		field := "request"
		if code != "invalid_request" {
			field = strings.TrimPrefix(code, "invalid_")
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{{Field: field, Code: code, Message: message}},
		}
	}

	for _, class := range errorClasses {
		if matchAny(err, class.errs) != nil {
			return class.status, errorPayload{Type: class.typ, Message: class.message}
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func matchAny(err error, targets []error) error {
	if err == nil {
		return nil
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// classifyErrorForLog feeds the request logger. Storage errors are reported
// by type only.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	switch {
	case payload.Type == "internal_error":
		return payload.Type, payload.Type
	case len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	default:
		return payload.Type, err.Error()
	}
}
