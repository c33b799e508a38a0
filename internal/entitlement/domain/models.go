// Package domain describes unlock requests and their outcomes.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
)

type Outcome string

const (
	OutcomeAlreadyUnlocked      Outcome = "ALREADY_UNLOCKED"
	OutcomeSubscriptionRequired Outcome = "SUBSCRIPTION_REQUIRED"
	OutcomeQuotaExceeded        Outcome = "QUOTA_EXCEEDED"
	OutcomeUnlocked             Outcome = "UNLOCKED"
)

type UnlockRequest struct {
	RecruiterID int64 `json:"recruiter_id"`
	CandidateID int64 `json:"candidate_id"`
}

func (r UnlockRequest) Validate() error {
	if r.RecruiterID <= 0 {
		return ErrInvalidRecruiter
	}
	if r.CandidateID <= 0 {
		return ErrInvalidCandidate
	}
	return nil
}

// UnlockResult carries one of four business outcomes. Used and Limit are set
// for QUOTA_EXCEEDED and UNLOCKED; Entry is set for UNLOCKED and, when the
// stored row is known, ALREADY_UNLOCKED.
type UnlockResult struct {
	Outcome        Outcome             `json:"outcome"`
	Used           int64               `json:"used,omitempty"`
	Limit          int64               `json:"limit,omitempty"`
	Entry          *ledgerdomain.Entry `json:"entry,omitempty"`
	SubscriptionID *snowflake.ID       `json:"subscription_id,omitempty"`
}

func (r UnlockResult) Granted() bool {
	return r.Outcome == OutcomeUnlocked || r.Outcome == OutcomeAlreadyUnlocked
}

type Service interface {
	// RequestUnlock decides whether the recruiter may see the candidate and,
	// on success, records the unlock. Denials are outcomes, not errors.
	RequestUnlock(ctx context.Context, req UnlockRequest) (UnlockResult, error)
}

var (
	ErrInvalidRecruiter = errors.New("invalid_recruiter")
	ErrInvalidCandidate = errors.New("invalid_candidate")
)
