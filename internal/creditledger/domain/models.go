// Package domain holds the append-only record of candidate unlocks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry records that a recruiter unlocked a candidate profile. Entries are
// permanent: unlocks are never revoked, not even when the granting
// subscription expires.
type Entry struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	RecruiterID    int64         `json:"recruiter_id" gorm:"not null;uniqueIndex:ux_credit_ledger_recruiter_candidate,priority:1"`
	CandidateID    int64         `json:"candidate_id" gorm:"not null;uniqueIndex:ux_credit_ledger_recruiter_candidate,priority:2"`
	SubscriptionID *snowflake.ID `json:"subscription_id,omitempty"`
	UnlockedAt     time.Time     `json:"unlocked_at" gorm:"not null"`
}

func (Entry) TableName() string { return "credit_ledger_entries" }

type UnlockEntry struct {
	RecruiterID    int64
	CandidateID    int64
	SubscriptionID *snowflake.ID
	// UnlockedAt defaults to the service clock when zero.
	UnlockedAt time.Time
}

func (e UnlockEntry) Validate() error {
	if e.RecruiterID <= 0 {
		return ErrInvalidRecruiter
	}
	if e.CandidateID <= 0 {
		return ErrInvalidCandidate
	}
	return nil
}
