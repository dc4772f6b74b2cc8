package reconcile

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/ledger"
	"vaultpay/internal/domain/notification"
	"vaultpay/internal/store/repositories"
)

// Notifier fans a reconciled payment out to the owning seller and every
// admin. It runs after the ledger transaction committed: a notification
// failure can never corrupt or abort a reconciliation, so each insert is
// retried a few times and then dropped with a log line.
type Notifier struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	maxRetries    uint64
}

func NewNotifier(notifications repositories.NotificationRepository, users repositories.UserRepository) *Notifier {
	return &Notifier{notifications: notifications, users: users, maxRetries: 3}
}

func (n *Notifier) PaymentReceived(ctx context.Context, cl *client.Client, automationName string, txn *ledger.Transaction) {
	recipients := make([]uuid.UUID, 0, 8)
	if txn.SellerID != nil {
		recipients = append(recipients, *txn.SellerID)
	}

	admins, err := n.users.FindAdmins(ctx)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("admin lookup failed; notifying seller only")
	}
	for _, a := range admins {
		recipients = append(recipients, a.ID)
	}

	for _, userID := range recipients {
		msg := notification.PaymentReceived(userID, cl.BusinessName, automationName, txn.Amount, txn.Type, txn.ID.String())
		if err := n.insertWithRetry(ctx, msg); err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("transaction_id", txn.ID.String()).
				Msg("notification dropped after retries")
		}
	}
}

func (n *Notifier) insertWithRetry(ctx context.Context, msg *notification.Notification) error {
	op := func() error { return n.notifications.Insert(ctx, msg) }
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	return backoff.Retry(op, bo)
}
