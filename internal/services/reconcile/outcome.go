package reconcile

import (
	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/ledger"
)

// Outcome distinguishes "nothing to do" from "money moved" so callers (the
// worker, replay, tests) never have to infer it from logs. Processing errors
// are returned separately and leave the event replayable.
type Outcome struct {
	Status      Status
	Reason      string
	Transaction *ledger.Transaction

	// context for the post-commit notification fan-out
	notifyClient     *client.Client
	notifyAutomation string
}

type Status string

const (
	StatusReconciled Status = "reconciled"
	StatusSkipped    Status = "skipped"
)

func reconciled(t *ledger.Transaction) Outcome {
	return Outcome{Status: StatusReconciled, Transaction: t, Reason: "reconciled"}
}

func skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}
