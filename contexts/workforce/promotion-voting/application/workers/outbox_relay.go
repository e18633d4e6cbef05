package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Interval  time.Duration
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after the publish succeeds. It stops on the first failure so
// the next cycle reprocesses the remaining rows in order.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("promotion outbox list failed",
			"event", "promotion_outbox_list_failed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("promotion outbox relay found no pending rows",
			"event", "promotion_outbox_relay_noop",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"batch_size", limit,
		)
		return 0, nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("promotion outbox decode failed",
				"event", "promotion_outbox_decode_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("promotion outbox publish failed",
				"event", "promotion_outbox_publish_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("promotion outbox mark published failed",
				"event", "promotion_outbox_mark_published_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("promotion outbox relay cycle completed",
		"event", "promotion_outbox_relay_completed",
		"module", "workforce/promotion-voting",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

// Run relays on every interval tick until ctx is done. Failed cycles are
// logged and retried on the next tick.
func (r OutboxRelay) Run(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("promotion outbox relay cycle failed",
				"event", "promotion_outbox_relay_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
