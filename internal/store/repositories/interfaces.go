package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vaultpay/internal/domain/assignment"
	"vaultpay/internal/domain/catalog"
	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/event"
	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/domain/notification"
	"vaultpay/internal/domain/user"
)

// ErrNotFound is returned by Find* methods when no row matches.
var ErrNotFound = errors.New("not found")

// ErrNoCommissionRule is returned when the commission function yields no row
// for a (seller, automation) pair. This is a hard error, not a 0% default: a
// payment must never be silently reconciled with the platform keeping 100%.
var ErrNoCommissionRule = errors.New("no commission rule for seller/automation")

// EventRepository stores provider webhook events.
type EventRepository interface {
	// Save inserts the event, deduplicating on (source, external_id).
	// A duplicate delivery leaves the stored row untouched and reports
	// inserted=false.
	Save(ctx context.Context, e *event.Event) (inserted bool, err error)
	FindByID(ctx context.Context, id int64) (*event.Event, error)
	FindUnprocessed(ctx context.Context, limit int) ([]*event.Event, error)
	FindIDsByWindow(ctx context.Context, since, until *time.Time, limit int) ([]int64, error)
	MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, outcome string) error
	MarkForReprocessing(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*event.Event, error)
}

// AssignmentRepository stores client-automation links.
type AssignmentRepository interface {
	FindByClientAndAutomation(ctx context.Context, clientID, automationID uuid.UUID) (*assignment.ClientAutomation, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*assignment.ClientAutomation, error)
	Update(ctx context.Context, a *assignment.ClientAutomation) error
}

// AutomationRepository reads the automation catalog and records Stripe ids
// assigned by catalog sync.
type AutomationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Automation, error)
	FindNeedingStripeSync(ctx context.Context) ([]*catalog.Automation, error)
	SaveStripeIDs(ctx context.Context, a *catalog.Automation) error
}

// ClientRepository reads clients and maintains their running spend.
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error)
	// AddToTotalSpent increments total_spent atomically in the database.
	AddToTotalSpent(ctx context.Context, id uuid.UUID, amount ledger.Money) error
}

// TransactionRepository appends to and reads the commission ledger.
type TransactionRepository interface {
	Insert(ctx context.Context, t *ledger.Transaction) error
	// ExistsForEvent reports whether a ledger row was already written for the
	// given provider event id. Checked inside the reconciliation transaction
	// so replays cannot double-book.
	ExistsForEvent(ctx context.Context, stripeEventID string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*ledger.Transaction, error)
}

// UserRepository resolves notification recipients.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindAdmins(ctx context.Context) ([]*user.User, error)
}

// NotificationRepository stores per-recipient messages.
type NotificationRepository interface {
	Insert(ctx context.Context, n *notification.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*notification.Notification, error)
}

// CommissionCalculator wraps the database-side commission split function. It
// is an opaque pure function from the reconciler's perspective.
type CommissionCalculator interface {
	Split(ctx context.Context, sellerID, automationID uuid.UUID, amount ledger.Money) (ledger.CommissionSplit, error)
}

// UnitOfWork begins database transactions spanning the status update, ledger
// insert and balance update of one reconciliation.
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is one reconciliation's transactional view of the store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Events() EventRepository
	Assignments() AssignmentRepository
	Automations() AutomationRepository
	Clients() ClientRepository
	Transactions() TransactionRepository
	Commission() CommissionCalculator
}
