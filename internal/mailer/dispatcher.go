package mailer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/careslot/careslot/internal/outbox"
	"github.com/careslot/careslot/libs/db"
)

// Dispatcher drains the outbox table and sends emails directly. It is the
// single-process alternative to the Kafka publisher/consumer pair; run one
// or the other, never both.
type Dispatcher struct {
	pool      *db.Pool
	repo      *outbox.Repository
	sender    Sender
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

func NewDispatcher(pool *db.Pool, repo *outbox.Repository, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		repo:      repo,
		sender:    sender,
		logger:    logger,
		pollEvery: 2 * time.Second,
		batchSize: 50,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatchBatch(ctx); err != nil {
				d.logger.Error("mail dispatch failed", "err", err)
			}
		}
	}
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := d.repo.FetchUnpublished(ctx, tx, d.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	var done []int64
	for _, rcd := range records {
		var payload outbox.AppointmentPayload
		if err := json.Unmarshal(rcd.Payload, &payload); err != nil {
			d.logger.Error("invalid outbox payload", "event_id", rcd.EventID, "err", err)
			done = append(done, rcd.ID)
			continue
		}

		sent := true
		for _, msg := range Render(rcd.EventType, payload) {
			if msg.To == "" {
				continue
			}
			if err := d.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
				d.logger.Error("email send failed", "event_id", rcd.EventID, "recipient", msg.To, "err", err)
				sent = false
				break
			}
		}
		// Failed sends stay unpublished and retry on the next poll.
		if sent {
			done = append(done, rcd.ID)
		}
	}

	if err := d.repo.MarkPublishedTx(ctx, tx, done); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
