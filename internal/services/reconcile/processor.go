package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vaultpay/internal/domain/assignment"
	"vaultpay/internal/domain/catalog"
	"vaultpay/internal/domain/event"
	"vaultpay/internal/domain/ledger"
	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/store/repositories"
)

// Processor turns verified payment-provider events into ledger and status
// writes. Each reconciliation runs in one database transaction: assignment
// status, ledger insert and client balance either all commit or none do.
// Notifications go out after commit, best-effort.
type Processor struct {
	uow      repositories.UnitOfWork
	events   repositories.EventRepository
	notifier *Notifier
}

func NewProcessor(uow repositories.UnitOfWork, events repositories.EventRepository, notifier *Notifier) *Processor {
	return &Processor{uow: uow, events: events, notifier: notifier}
}

// ProcessEvent classifies and reconciles a single stored event. A returned
// error marks the event failed and leaves it replayable; a Skipped outcome is
// terminal until an operator requeues it.
func (p *Processor) ProcessEvent(ctx context.Context, evt *event.Event) (Outcome, error) {
	switch evt.Type {
	case event.TypeCheckoutSessionCompleted:
		return p.processCheckoutSession(ctx, evt)
	case event.TypeInvoicePaymentSucceeded:
		return p.processInvoice(ctx, evt)
	default:
		return p.skip(ctx, evt, "unhandled event type: "+evt.Type)
	}
}

func (p *Processor) processCheckoutSession(ctx context.Context, evt *event.Event) (Outcome, error) {
	session, err := parseSessionPayload(evt.PayloadJSON)
	if err != nil {
		return p.fail(ctx, evt, fmt.Errorf("bad checkout.session payload: %w", err))
	}

	automationID, clientID, ok := session.entityIDs()
	if !ok {
		return p.skip(ctx, evt, "missing or malformed automation_id/client_id metadata")
	}

	switch session.Metadata[stripeprovider.MetaPaymentType] {
	case stripeprovider.PaymentTypeSetupFee:
		return p.reconcileSetupFee(ctx, evt, session, clientID, automationID)
	case stripeprovider.PaymentTypeMonthlySubscription:
		return p.reconcileSubscription(ctx, evt, session, clientID, automationID)
	default:
		return p.skip(ctx, evt, "unknown payment_type: "+session.Metadata[stripeprovider.MetaPaymentType])
	}
}

func (p *Processor) reconcileSetupFee(ctx context.Context, evt *event.Event, session *sessionPayload, clientID, automationID uuid.UUID) (Outcome, error) {
	return p.inTx(ctx, evt, func(tx repositories.Transaction) (Outcome, error) {
		asg, auto, out, err := p.resolveAssignment(ctx, tx, clientID, automationID)
		if err != nil || out != nil {
			return deref(out), err
		}
		if auto.SetupPrice <= 0 {
			return skipped("automation has no setup price"), nil
		}
		if err := asg.MarkSetupPaid(session.ID); err != nil {
			return Outcome{}, err
		}
		return p.book(ctx, tx, evt, asg, auto, auto.SetupPrice, ledger.TypeSetup)
	})
}

func (p *Processor) reconcileSubscription(ctx context.Context, evt *event.Event, session *sessionPayload, clientID, automationID uuid.UUID) (Outcome, error) {
	if session.Subscription == "" {
		return p.skip(ctx, evt, "checkout session carries no subscription id")
	}
	return p.inTx(ctx, evt, func(tx repositories.Transaction) (Outcome, error) {
		asg, auto, out, err := p.resolveAssignment(ctx, tx, clientID, automationID)
		if err != nil || out != nil {
			return deref(out), err
		}
		if auto.MonthlyPrice <= 0 {
			return skipped("automation has no monthly price"), nil
		}
		if err := asg.ActivateSubscription(string(session.Subscription)); err != nil {
			return Outcome{}, err
		}
		asg.StripeSessionID = session.ID
		return p.book(ctx, tx, evt, asg, auto, auto.MonthlyPrice, ledger.TypeMonthly)
	})
}

func (p *Processor) processInvoice(ctx context.Context, evt *event.Event) (Outcome, error) {
	invoice, err := parseInvoicePayload(evt.PayloadJSON)
	if err != nil {
		return p.fail(ctx, evt, fmt.Errorf("bad invoice payload: %w", err))
	}
	subID := invoice.subscriptionID()
	if subID == "" {
		return p.skip(ctx, evt, "invoice carries no subscription id")
	}

	return p.inTx(ctx, evt, func(tx repositories.Transaction) (Outcome, error) {
		asg, err := tx.Assignments().FindBySubscriptionID(ctx, subID)
		if errors.Is(err, repositories.ErrNotFound) {
			// Recurring revenue for a subscription this system never saw.
			// Recorded as a skip rather than dropped from a log line.
			return skipped("no client automation for subscription " + subID), nil
		}
		if err != nil {
			return Outcome{}, err
		}
		auto, err := tx.Automations().FindByID(ctx, asg.AutomationID)
		if errors.Is(err, repositories.ErrNotFound) {
			return skipped("automation missing for assignment " + asg.ID.String()), nil
		}
		if err != nil {
			return Outcome{}, err
		}

		amount := ledger.Money(invoice.AmountPaid)
		if amount <= 0 {
			amount = auto.MonthlyPrice
		}
		if amount <= 0 {
			return skipped("invoice and automation both carry no amount"), nil
		}
		if err := asg.ActivateSubscription(subID); err != nil {
			return Outcome{}, err
		}
		return p.book(ctx, tx, evt, asg, auto, amount, ledger.TypeMonthly)
	})
}

// resolveAssignment loads and validates the (client, automation) link and the
// catalog entry inside the transaction. A nil Outcome means both loaded.
func (p *Processor) resolveAssignment(ctx context.Context, tx repositories.Transaction, clientID, automationID uuid.UUID) (*assignment.ClientAutomation, *catalog.Automation, *Outcome, error) {
	asg, err := tx.Assignments().FindByClientAndAutomation(ctx, clientID, automationID)
	if errors.Is(err, repositories.ErrNotFound) {
		out := skipped("no client automation link for client " + clientID.String())
		return nil, nil, &out, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	auto, err := tx.Automations().FindByID(ctx, automationID)
	if errors.Is(err, repositories.ErrNotFound) {
		out := skipped("automation " + automationID.String() + " not in catalog")
		return nil, nil, &out, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return asg, auto, nil, nil
}

// book performs the shared tail of every branch: commission split, ledger
// insert, atomic balance increment, assignment persist. Caller has already
// applied the status transition to asg.
func (p *Processor) book(ctx context.Context, tx repositories.Transaction, evt *event.Event, asg *assignment.ClientAutomation, auto *catalog.Automation, amount ledger.Money, txType ledger.TransactionType) (Outcome, error) {
	var split ledger.CommissionSplit
	if asg.SellerID == nil {
		split = ledger.HouseSplit(amount)
	} else {
		var err error
		split, err = tx.Commission().Split(ctx, *asg.SellerID, asg.AutomationID, amount)
		if err != nil {
			return Outcome{}, err
		}
	}

	txn, err := ledger.NewTransaction(asg.ClientID, asg.AutomationID, asg.SellerID, amount, split, txType, evt.ExternalID)
	if err != nil {
		return Outcome{}, err
	}

	if err := tx.Assignments().Update(ctx, asg); err != nil {
		return Outcome{}, err
	}
	if err := tx.Transactions().Insert(ctx, txn); err != nil {
		return Outcome{}, err
	}
	if err := tx.Clients().AddToTotalSpent(ctx, asg.ClientID, amount); err != nil {
		return Outcome{}, err
	}

	// Recipients need the client's business name; read it while we hold the tx.
	cl, err := tx.Clients().FindByID(ctx, asg.ClientID)
	if err != nil {
		return Outcome{}, err
	}

	out := reconciled(txn)
	out.notifyClient = cl
	out.notifyAutomation = auto.Name
	return out, nil
}

// inTx wraps a branch in a transaction with the duplicate-event guard, marks
// the event's terminal status, commits, and dispatches notifications after
// the commit succeeded.
func (p *Processor) inTx(ctx context.Context, evt *event.Event, branch func(repositories.Transaction) (Outcome, error)) (Outcome, error) {
	tx, err := p.uow.Begin(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	already, err := tx.Transactions().ExistsForEvent(ctx, evt.ExternalID)
	if err != nil {
		return p.fail(ctx, evt, err)
	}
	if already {
		out := skipped("event already reconciled")
		if err := tx.Events().MarkProcessed(ctx, evt.ID, event.ProcessingSkipped, out.Reason); err != nil {
			return Outcome{}, err
		}
		return out, tx.Commit(ctx)
	}

	out, err := branch(tx)
	if err != nil {
		// Rollback discards any partial writes; the failure mark goes
		// through the pool so it survives the rollback.
		return p.fail(ctx, evt, err)
	}

	status := event.ProcessingCompleted
	if out.Status == StatusSkipped {
		status = event.ProcessingSkipped
	}
	if err := tx.Events().MarkProcessed(ctx, evt.ID, status, out.Reason); err != nil {
		return Outcome{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}

	if out.Status == StatusReconciled && p.notifier != nil {
		p.notifier.PaymentReceived(ctx, out.notifyClient, out.notifyAutomation, out.Transaction)
	}
	return out, nil
}

func (p *Processor) skip(ctx context.Context, evt *event.Event, reason string) (Outcome, error) {
	log.Warn().Int64("event_id", evt.ID).Str("stripe_event_id", evt.ExternalID).
		Str("type", evt.Type).Str("reason", reason).Msg("event skipped")
	if err := p.events.MarkProcessed(ctx, evt.ID, event.ProcessingSkipped, reason); err != nil {
		return Outcome{}, err
	}
	return skipped(reason), nil
}

func (p *Processor) fail(ctx context.Context, evt *event.Event, cause error) (Outcome, error) {
	if err := p.events.MarkProcessed(ctx, evt.ID, event.ProcessingFailed, cause.Error()); err != nil {
		log.Error().Err(err).Int64("event_id", evt.ID).Msg("failed to record failure status")
	}
	return Outcome{}, cause
}

func deref(o *Outcome) Outcome {
	if o == nil {
		return Outcome{}
	}
	return *o
}

// ----- payload parsing -------------------------------------------------------

// idRef tolerates both representations Stripe uses for linked objects in
// webhook payloads: a bare id string or an expanded object with an "id" key.
type idRef string

func (r *idRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = idRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = idRef(obj.ID)
	return nil
}

type sessionPayload struct {
	ID           string            `json:"id"`
	Subscription idRef             `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func (s *sessionPayload) entityIDs() (automationID, clientID uuid.UUID, ok bool) {
	automationID, errA := uuid.Parse(s.Metadata[stripeprovider.MetaAutomationID])
	clientID, errC := uuid.Parse(s.Metadata[stripeprovider.MetaClientID])
	return automationID, clientID, errA == nil && errC == nil
}

type invoicePayload struct {
	ID           string `json:"id"`
	Subscription idRef  `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription idRef `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// subscriptionID handles both payload generations: older API versions carry
// the id at the top level, newer ones nest it under parent.
func (i *invoicePayload) subscriptionID() string {
	if i.Subscription != "" {
		return string(i.Subscription)
	}
	return string(i.Parent.SubscriptionDetails.Subscription)
}

// eventEnvelope is the outer shape of a stored provider event.
type eventEnvelope struct {
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func parseSessionPayload(raw []byte) (*sessionPayload, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var s sessionPayload
	if err := json.Unmarshal(env.Data.Object, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func parseInvoicePayload(raw []byte) (*invoicePayload, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var inv invoicePayload
	if err := json.Unmarshal(env.Data.Object, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}
