package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"promovote/contexts/workforce/promotion-voting/ports"
)

const resolutionNoticeTopic = "promotion_vote.resolved"

// RawPublisher is the slice of a pub/sub client the notifier needs.
type RawPublisher interface {
	PublishRaw(ctx context.Context, topic string, payload []byte) error
}

// RedisNotifier pushes resolution notices to a Redis channel for the chat
// and email delivery services.
type RedisNotifier struct {
	Publisher RawPublisher
	Logger    *slog.Logger
}

type resolutionNoticeMessage struct {
	ProposalID          string    `json:"proposal_id"`
	ApplicantID         string    `json:"applicant_id"`
	ApplicantName       string    `json:"applicant_name"`
	StoreName           string    `json:"store_name"`
	CurrentPosition     string    `json:"current_position"`
	TargetPosition      string    `json:"target_position"`
	Status              string    `json:"status"`
	AgreeCount          int       `json:"agree_count"`
	DisagreeCount       int       `json:"disagree_count"`
	QualifiedVoterCount int       `json:"qualified_voter_count"`
	ResolvedAt          time.Time `json:"resolved_at"`
}

func (n RedisNotifier) NotifyResolution(ctx context.Context, notice ports.ResolutionNotice) error {
	payload, err := json.Marshal(resolutionNoticeMessage{
		ProposalID:          notice.ProposalID,
		ApplicantID:         notice.ApplicantID,
		ApplicantName:       notice.ApplicantName,
		StoreName:           notice.StoreName,
		CurrentPosition:     notice.CurrentPosition,
		TargetPosition:      notice.TargetPosition,
		Status:              string(notice.Status),
		AgreeCount:          notice.AgreeCount,
		DisagreeCount:       notice.DisagreeCount,
		QualifiedVoterCount: notice.QualifiedVoterCount,
		ResolvedAt:          notice.ResolvedAt.UTC(),
	})
	if err != nil {
		return err
	}
	if err := n.Publisher.PublishRaw(ctx, resolutionNoticeTopic, payload); err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("promotion resolution notice published",
		"event", "promotion_resolution_notice_published",
		"module", "workforce/promotion-voting",
		"layer", "adapter",
		"proposal_id", notice.ProposalID,
		"status", string(notice.Status),
	)
	return nil
}

var _ ports.NotificationSink = RedisNotifier{}
