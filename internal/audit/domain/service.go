package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/hireledger/pkg/db/pagination"
)

// Event describes one state change to record. An empty ActorType falls back
// to the actor carried by the request context, then to system.
type Event struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
}

type ListResponse struct {
	pagination.PageInfo
	Logs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var ErrInvalidAction = errors.New("invalid_action")
