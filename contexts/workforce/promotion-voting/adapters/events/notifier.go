package events

import (
	"context"
	"log/slog"

	"promovote/contexts/workforce/promotion-voting/ports"
)

// LogNotifier is the default notification sink. It records the notice for an
// external delivery pipeline that tails the service logs.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyResolution(_ context.Context, notice ports.ResolutionNotice) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("promotion vote resolution notice",
		"event", "promotion_resolution_notice",
		"module", "workforce/promotion-voting",
		"layer", "adapter",
		"proposal_id", notice.ProposalID,
		"applicant_id", notice.ApplicantID,
		"applicant_name", notice.ApplicantName,
		"store_name", notice.StoreName,
		"target_position", notice.TargetPosition,
		"status", string(notice.Status),
		"agree_count", notice.AgreeCount,
		"disagree_count", notice.DisagreeCount,
		"qualified_voter_count", notice.QualifiedVoterCount,
		"resolved_at", notice.ResolvedAt,
	)
	return nil
}

var _ ports.NotificationSink = LogNotifier{}
