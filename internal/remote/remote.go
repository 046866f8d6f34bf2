package remote

import (
	"context"
	"errors"

	"barledger/backend/internal/domain"
)

var ErrNotFound = errors.New("not found")

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one push notification from the remote ledger. New is set
// for inserts and updates, Old for updates and deletes.
type ChangeEvent struct {
	Type EventType    `json:"event_type"`
	New  *domain.Sale `json:"new,omitempty"`
	Old  *domain.Sale `json:"old,omitempty"`
}

// Ledger is the external backend that durably stores sale records and
// notifies other sessions of changes. The engine consumes this interface;
// it never reimplements the backend.
type Ledger interface {
	// FetchAll returns every record. The backend orders by date descending
	// by convention, but callers re-sort as needed.
	FetchAll(ctx context.Context) ([]domain.Sale, error)
	// Create stores a fully-formed record and returns the authoritative
	// stored copy, including the backend-generated id and timestamps.
	Create(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	Update(ctx context.Context, id string, sale domain.Sale) (*domain.Sale, error)
	Delete(ctx context.Context, id string) error
	// Subscribe opens the push stream. Events arrive in order on Events();
	// stream-level problems surface on Errors(). Cancel is idempotent.
	Subscribe(ctx context.Context) (Subscription, error)
}

type Subscription interface {
	Events() <-chan ChangeEvent
	Errors() <-chan error
	Cancel()
}
