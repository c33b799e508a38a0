package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/hireledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	HasUnlocked(ctx context.Context, recruiterID, candidateID int64) (bool, error)
	// CountUnlocked counts every unlock the recruiter ever made, across all
	// subscriptions.
	CountUnlocked(ctx context.Context, recruiterID int64) (int64, error)
	// RecordUnlock is idempotent on (recruiter, candidate). created is false
	// when the pair was already unlocked, in which case the stored entry is
	// returned unchanged.
	RecordUnlock(ctx context.Context, entry UnlockEntry) (Entry, bool, error)
	ListByRecruiter(ctx context.Context, req ListRequest) (ListResponse, error)
	// WithTx binds the service to tx.
	WithTx(tx *gorm.DB) Service
}

type ListRequest struct {
	RecruiterID int64
	pagination.Pagination
}

type ListResponse struct {
	Entries  []Entry             `json:"entries"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidRecruiter = errors.New("invalid_recruiter")
	ErrInvalidCandidate = errors.New("invalid_candidate")
	ErrEntryNotFound    = errors.New("ledger_entry_not_found")
)
