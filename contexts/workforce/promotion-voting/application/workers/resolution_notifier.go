package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

const (
	proposalResolvedTopic   = "promotion_vote.resolved"
	defaultNotifierCG       = "promotion-voting-notifier-cg"
	defaultNotifierDedupTTL = 7 * 24 * time.Hour
)

// ResolutionNotifier forwards resolved proposals to the notification sink.
// Delivery is at-least-once from the bus and deduplicated by event id, so a
// resolution is handed to the sink once.
type ResolutionNotifier struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Sink          ports.NotificationSink
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (n ResolutionNotifier) Start(ctx context.Context) error {
	logger := application.ResolveLogger(n.Logger)
	if n.Disabled {
		logger.Info("promotion resolution notifier disabled by feature flag",
			"event", "promotion_notifier_disabled",
			"module", "workforce/promotion-voting",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(n.ConsumerGroup)
	if group == "" {
		group = defaultNotifierCG
	}
	if err := n.Subscriber.Subscribe(ctx, proposalResolvedTopic, group, n.handleResolved); err != nil {
		logger.Error("promotion resolution notifier subscribe failed",
			"event", "promotion_notifier_subscribe_failed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"topic", proposalResolvedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("promotion resolution notifier subscribed",
		"event", "promotion_notifier_started",
		"module", "workforce/promotion-voting",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (n ResolutionNotifier) handleResolved(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(n.Logger)
	alreadyProcessed, err := n.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), n.now().Add(n.dedupTTL()))
	if err != nil {
		logger.Error("promotion resolution dedupe failed",
			"event", "promotion_notifier_dedupe_failed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("promotion resolution replay skipped",
			"event", "promotion_notifier_replayed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		ProposalID          string     `json:"proposal_id"`
		ApplicantID         string     `json:"applicant_id"`
		ApplicantName       string     `json:"applicant_name"`
		StoreName           string     `json:"store_name"`
		CurrentPosition     string     `json:"current_position"`
		TargetPosition      string     `json:"target_position"`
		Status              string     `json:"status"`
		AgreeCount          int        `json:"agree_count"`
		DisagreeCount       int        `json:"disagree_count"`
		QualifiedVoterCount int        `json:"qualified_voter_count"`
		ResolvedAt          *time.Time `json:"resolved_at"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("promotion resolution payload decode failed",
			"event", "promotion_notifier_decode_failed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	notice := ports.ResolutionNotice{
		ProposalID:          payload.ProposalID,
		ApplicantID:         payload.ApplicantID,
		ApplicantName:       payload.ApplicantName,
		StoreName:           payload.StoreName,
		CurrentPosition:     payload.CurrentPosition,
		TargetPosition:      payload.TargetPosition,
		Status:              entities.ProposalStatus(payload.Status),
		AgreeCount:          payload.AgreeCount,
		DisagreeCount:       payload.DisagreeCount,
		QualifiedVoterCount: payload.QualifiedVoterCount,
		ResolvedAt:          event.OccurredAt.UTC(),
	}
	if payload.ResolvedAt != nil {
		notice.ResolvedAt = payload.ResolvedAt.UTC()
	}

	// Proposal state is already committed; a failed delivery is only logged.
	if err := n.Sink.NotifyResolution(ctx, notice); err != nil {
		logger.Warn("promotion resolution notification failed",
			"event", "promotion_notifier_delivery_failed",
			"module", "workforce/promotion-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", notice.ProposalID,
			"error", err.Error(),
		)
		return nil
	}
	logger.Info("promotion resolution notification dispatched",
		"event", "promotion_notifier_dispatched",
		"module", "workforce/promotion-voting",
		"layer", "worker",
		"event_id", event.EventID,
		"proposal_id", notice.ProposalID,
		"status", payload.Status,
	)
	return nil
}

func (n ResolutionNotifier) dedupTTL() time.Duration {
	if n.DedupTTL <= 0 {
		return defaultNotifierDedupTTL
	}
	return n.DedupTTL
}

func (n ResolutionNotifier) now() time.Time {
	if n.Clock == nil {
		return time.Now().UTC()
	}
	return n.Clock.Now().UTC()
}
