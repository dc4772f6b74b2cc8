package reconcile_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"vaultpay/internal/domain/assignment"
	"vaultpay/internal/domain/catalog"
	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/event"
	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/domain/notification"
	"vaultpay/internal/domain/user"
	"vaultpay/internal/store/repositories"
)

// memStore is a single in-memory backing store shared by all fake
// repositories, so a test can seed state once and inspect every side effect
// of a reconciliation.
type memStore struct {
	nextEventID   int64
	events        map[int64]*event.Event
	assignments   map[uuid.UUID]*assignment.ClientAutomation
	automations   map[uuid.UUID]*catalog.Automation
	clients       map[uuid.UUID]*client.Client
	transactions  []*ledger.Transaction
	users         []*user.User
	notifications []*notification.Notification
	rates         map[uuid.UUID]int32 // seller id -> commission bps

	commits  int
	adminErr error
}

func newMemStore() *memStore {
	return &memStore{
		events:      map[int64]*event.Event{},
		assignments: map[uuid.UUID]*assignment.ClientAutomation{},
		automations: map[uuid.UUID]*catalog.Automation{},
		clients:     map[uuid.UUID]*client.Client{},
		rates:       map[uuid.UUID]int32{},
	}
}

func (s *memStore) addEvent(eventType, externalID string, payload []byte) *event.Event {
	s.nextEventID++
	e := &event.Event{
		ID:               s.nextEventID,
		Source:           event.SourceStripe,
		Type:             eventType,
		ExternalID:       externalID,
		PayloadJSON:      payload,
		ReceivedAt:       time.Now(),
		ProcessingStatus: event.ProcessingPending,
	}
	s.events[e.ID] = e
	return e
}

// ----- event repository ------------------------------------------------------

type fakeEvents struct{ s *memStore }

func (f fakeEvents) Save(_ context.Context, e *event.Event) (bool, error) {
	for _, existing := range f.s.events {
		if existing.Source == e.Source && existing.ExternalID == e.ExternalID {
			return false, nil
		}
	}
	f.s.nextEventID++
	e.ID = f.s.nextEventID
	f.s.events[e.ID] = e
	return true, nil
}

func (f fakeEvents) FindByID(_ context.Context, id int64) (*event.Event, error) {
	e, ok := f.s.events[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return e, nil
}

func (f fakeEvents) FindUnprocessed(_ context.Context, limit int) ([]*event.Event, error) {
	var out []*event.Event
	for _, e := range f.s.events {
		if !e.IsProcessed() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeEvents) FindIDsByWindow(_ context.Context, since, until *time.Time, limit int) ([]int64, error) {
	var ids []int64
	for _, e := range f.s.events {
		if since != nil && e.ReceivedAt.Before(*since) {
			continue
		}
		if until != nil && e.ReceivedAt.After(*until) {
			continue
		}
		ids = append(ids, e.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f fakeEvents) MarkProcessed(_ context.Context, id int64, status event.ProcessingStatus, outcome string) error {
	e, ok := f.s.events[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := e.UpdateProcessingStatus(status); err != nil {
		return err
	}
	e.Outcome = outcome
	return nil
}

func (f fakeEvents) MarkForReprocessing(_ context.Context, id int64) error {
	e, ok := f.s.events[id]
	if !ok {
		return repositories.ErrNotFound
	}
	return e.UpdateProcessingStatus(event.ProcessingQueued)
}

func (f fakeEvents) List(_ context.Context, limit, offset int) ([]*event.Event, error) {
	var out []*event.Event
	for _, e := range f.s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ----- remaining repositories ------------------------------------------------

type fakeAssignments struct{ s *memStore }

func (f fakeAssignments) FindByClientAndAutomation(_ context.Context, clientID, automationID uuid.UUID) (*assignment.ClientAutomation, error) {
	for _, a := range f.s.assignments {
		if a.ClientID == clientID && a.AutomationID == automationID {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeAssignments) FindBySubscriptionID(_ context.Context, subscriptionID string) (*assignment.ClientAutomation, error) {
	for _, a := range f.s.assignments {
		if a.StripeSubscriptionID == subscriptionID {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeAssignments) Update(_ context.Context, a *assignment.ClientAutomation) error {
	f.s.assignments[a.ID] = a
	return nil
}

type fakeAutomations struct{ s *memStore }

func (f fakeAutomations) FindByID(_ context.Context, id uuid.UUID) (*catalog.Automation, error) {
	a, ok := f.s.automations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a, nil
}

func (f fakeAutomations) FindNeedingStripeSync(_ context.Context) ([]*catalog.Automation, error) {
	var out []*catalog.Automation
	for _, a := range f.s.automations {
		if a.NeedsStripeSync() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAutomations) SaveStripeIDs(_ context.Context, a *catalog.Automation) error {
	f.s.automations[a.ID] = a
	return nil
}

type fakeClients struct{ s *memStore }

func (f fakeClients) FindByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	c, ok := f.s.clients[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (f fakeClients) AddToTotalSpent(_ context.Context, id uuid.UUID, amount ledger.Money) error {
	c, ok := f.s.clients[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TotalSpent += amount
	return nil
}

type fakeTransactions struct{ s *memStore }

func (f fakeTransactions) Insert(_ context.Context, t *ledger.Transaction) error {
	f.s.transactions = append(f.s.transactions, t)
	return nil
}

func (f fakeTransactions) ExistsForEvent(_ context.Context, stripeEventID string) (bool, error) {
	for _, t := range f.s.transactions {
		if t.StripeEventID == stripeEventID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeTransactions) List(_ context.Context, limit, offset int) ([]*ledger.Transaction, error) {
	return f.s.transactions, nil
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	for _, u := range f.s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) FindAdmins(_ context.Context) ([]*user.User, error) {
	if f.s.adminErr != nil {
		return nil, f.s.adminErr
	}
	var out []*user.User
	for _, u := range f.s.users {
		if u.Role == user.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeNotifications struct{ s *memStore }

func (f fakeNotifications) Insert(_ context.Context, n *notification.Notification) error {
	f.s.notifications = append(f.s.notifications, n)
	return nil
}

func (f fakeNotifications) ListForUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, n := range f.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeCommission struct{ s *memStore }

func (f fakeCommission) Split(_ context.Context, sellerID, automationID uuid.UUID, amount ledger.Money) (ledger.CommissionSplit, error) {
	rate, ok := f.s.rates[sellerID]
	if !ok {
		return ledger.CommissionSplit{}, repositories.ErrNoCommissionRule
	}
	earnings := ledger.Money(int64(amount) * int64(rate) / 10000)
	return ledger.CommissionSplit{
		RateBps:        rate,
		SellerEarnings: earnings,
		VaultShare:     amount - earnings,
	}, nil
}

// ----- unit of work ----------------------------------------------------------

type fakeUOW struct{ s *memStore }

func (f fakeUOW) Begin(context.Context) (repositories.Transaction, error) {
	return &fakeTx{s: f.s}, nil
}

type fakeTx struct {
	s         *memStore
	committed bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	t.s.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

func (t *fakeTx) Events() repositories.EventRepository             { return fakeEvents{t.s} }
func (t *fakeTx) Assignments() repositories.AssignmentRepository   { return fakeAssignments{t.s} }
func (t *fakeTx) Automations() repositories.AutomationRepository   { return fakeAutomations{t.s} }
func (t *fakeTx) Clients() repositories.ClientRepository           { return fakeClients{t.s} }
func (t *fakeTx) Transactions() repositories.TransactionRepository { return fakeTransactions{t.s} }
func (t *fakeTx) Commission() repositories.CommissionCalculator    { return fakeCommission{t.s} }
