package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"vaultpay/internal/domain/event"
	"vaultpay/internal/store/repositories"
)

// Worker polls for unprocessed events and feeds them through the processor.
// Intake (the webhook handler) and reconciliation are decoupled on purpose:
// Stripe gets its acknowledgement as soon as the event is durable, and
// processing failures stay local and replayable.
type Worker struct {
	events    repositories.EventRepository
	processor *Processor
	pollEvery time.Duration
	batchSize int
}

func NewWorker(events repositories.EventRepository, processor *Processor, pollEvery time.Duration, batchSize int) *Worker {
	if pollEvery == 0 {
		pollEvery = 2 * time.Second
	}
	if batchSize == 0 {
		batchSize = 50
	}
	return &Worker{events: events, processor: processor, pollEvery: pollEvery, batchSize: batchSize}
}

// Run processes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("poll_every", w.pollEvery).Int("batch_size", w.batchSize).Msg("reconcile worker started")

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconcile worker stopping")
			return
		case <-ticker.C:
			if err := w.processNextBatch(ctx); err != nil {
				log.Error().Err(err).Msg("event batch failed")
			}
		}
	}
}

func (w *Worker) processNextBatch(ctx context.Context) error {
	events, err := w.events.FindUnprocessed(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	log.Debug().Int("count", len(events)).Msg("processing event batch")

	for _, evt := range events {
		w.processOne(ctx, evt)
	}
	return nil
}

func (w *Worker) processOne(ctx context.Context, evt *event.Event) {
	start := time.Now()
	out, err := w.processor.ProcessEvent(ctx, evt)
	logger := log.With().
		Int64("event_id", evt.ID).
		Str("stripe_event_id", evt.ExternalID).
		Str("type", evt.Type).
		Dur("duration", time.Since(start)).
		Logger()

	if err != nil {
		// Event is marked failed; replayable via the admin API.
		logger.Error().Err(err).Msg("event reconciliation failed")
		return
	}

	switch out.Status {
	case StatusReconciled:
		logger.Info().
			Str("transaction_id", out.Transaction.ID.String()).
			Int64("amount", int64(out.Transaction.Amount)).
			Str("transaction_type", string(out.Transaction.Type)).
			Msg("event reconciled")
	default:
		logger.Info().Str("reason", out.Reason).Msg("event skipped")
	}
}
