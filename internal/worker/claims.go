package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"chillcoin/internal/model"
	"chillcoin/internal/service"
)

// ClaimWorker listens on the claims topic and appends each credited event to
// the claims audit table. The table is write-only from the engine's point of
// view; nothing ever reads it back into the ledger.
type ClaimWorker struct {
	ledger   service.Ledger
	natsConn *nats.Conn
	logger   *slog.Logger
}

func NewClaimWorker(ledger service.Ledger, nc *nats.Conn, logger *slog.Logger) *ClaimWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimWorker{ledger: ledger, natsConn: nc, logger: logger}
}

// Start subscribes to the claims topic and blocks until ctx is cancelled.
// QueueSubscribe spreads messages across worker instances; each message is
// received by only one member of the group.
func (w *ClaimWorker) Start(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(service.TopicClaims, "claims_workers", func(m *nats.Msg) {
		w.handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe: %w", err)
	}

	w.logger.Info("claim worker is running")

	<-ctx.Done()

	w.logger.Info("claim worker shutting down, draining subscription")
	return sub.Drain()
}

// Stop implements the infrastructure.Server interface (shutdown is via ctx).
func (w *ClaimWorker) Stop(ctx context.Context) error {
	return nil
}

func (w *ClaimWorker) handle(ctx context.Context, data []byte) {
	var event model.ClaimEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("worker: failed to unmarshal claim event", "error", err)
		return
	}

	if err := w.ledger.SyncClaim(ctx, event); err != nil {
		w.logger.Error("worker: failed to append claim",
			"account_id", event.AccountID,
			"kind", event.Kind,
			"key", event.IdempotencyKey,
			"error", err,
		)
		return
	}

	w.logger.Info("worker: claim recorded",
		"account_id", event.AccountID,
		"kind", event.Kind,
		"key", event.IdempotencyKey,
	)
}
