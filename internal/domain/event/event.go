package event

import (
	"fmt"
	"strings"
	"time"
)

// Event is a verified provider webhook delivery, persisted raw before any
// reconciliation happens. ExternalID is the provider's event id (evt_...);
// the unique constraint on it is the idempotency key against duplicate
// deliveries.
type Event struct {
	ID               int64
	Source           string
	Type             string
	ExternalID       string
	PayloadJSON      []byte
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
	ProcessingStatus ProcessingStatus
	Outcome          string
}

const SourceStripe = "stripe"

// Stripe event types the classifier dispatches on. Anything else is recorded
// and skipped.
const (
	TypeCheckoutSessionCompleted = "checkout.session.completed"
	TypeInvoicePaymentSucceeded  = "invoice.payment_succeeded"
)

// ProcessingStatus tracks an event through the reconciliation pipeline.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingQueued    ProcessingStatus = "queued"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingSkipped   ProcessingStatus = "skipped"
	ProcessingFailed    ProcessingStatus = "failed"
)

// New creates a pending event with validation.
func New(source, eventType, externalID string, payload []byte) (*Event, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("source is required")
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("external ID is required")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}

	return &Event{
		Source:           source,
		Type:             eventType,
		ExternalID:       externalID,
		PayloadJSON:      payload,
		ReceivedAt:       time.Now(),
		ProcessingStatus: ProcessingPending,
	}, nil
}

// IsProcessed reports whether the event reached a terminal status.
func (e *Event) IsProcessed() bool {
	switch e.ProcessingStatus {
	case ProcessingCompleted, ProcessingSkipped, ProcessingFailed:
		return true
	}
	return false
}

// CanChangeStatus guards status transitions. Terminal statuses can only move
// back to queued (explicit replay); pending/queued can reach any terminal
// status.
func (e *Event) CanChangeStatus(next ProcessingStatus) bool {
	switch e.ProcessingStatus {
	case ProcessingPending, ProcessingQueued:
		return next == ProcessingCompleted || next == ProcessingSkipped || next == ProcessingFailed || next == ProcessingQueued
	case ProcessingCompleted, ProcessingSkipped, ProcessingFailed:
		return next == ProcessingQueued
	}
	return false
}

// UpdateProcessingStatus applies a guarded status change.
func (e *Event) UpdateProcessingStatus(next ProcessingStatus) error {
	if !e.CanChangeStatus(next) {
		return fmt.Errorf("cannot change status from %s to %s", e.ProcessingStatus, next)
	}
	e.ProcessingStatus = next
	if e.IsProcessed() {
		now := time.Now()
		e.ProcessedAt = &now
	} else {
		e.ProcessedAt = nil
	}
	return nil
}
