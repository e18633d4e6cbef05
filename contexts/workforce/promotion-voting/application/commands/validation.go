package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
)

func validateInitiateCommand(cmd InitiateCommand) error {
	required := []struct {
		field string
		value string
	}{
		{"initiator_id", cmd.InitiatorID},
		{"applicant_id", cmd.ApplicantID},
		{"applicant_name", cmd.ApplicantName},
		{"store_name", cmd.StoreName},
		{"current_position", cmd.CurrentPosition},
		{"target_position", cmd.TargetPosition},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return fmt.Errorf("%w: %s is required", domainerrors.ErrValidation, item.field)
		}
	}
	reasonLength := utf8.RuneCountInString(strings.TrimSpace(cmd.Reason))
	if reasonLength < entities.MinReasonLength || reasonLength > entities.MaxReasonLength {
		return fmt.Errorf("%w: reason must be between %d and %d characters",
			domainerrors.ErrValidation, entities.MinReasonLength, entities.MaxReasonLength)
	}
	if cmd.VoteDurationDays < entities.MinVoteDuration || cmd.VoteDurationDays > entities.MaxVoteDuration {
		return fmt.Errorf("%w: vote_duration_days must be between %d and %d",
			domainerrors.ErrValidation, entities.MinVoteDuration, entities.MaxVoteDuration)
	}
	return nil
}

func validateSubmitVoteCommand(cmd SubmitVoteCommand) error {
	if strings.TrimSpace(cmd.ProposalID) == "" {
		return fmt.Errorf("%w: proposal_id is required", domainerrors.ErrValidation)
	}
	if strings.TrimSpace(cmd.VoterID) == "" {
		return fmt.Errorf("%w: voter_id is required", domainerrors.ErrValidation)
	}
	if !cmd.Choice.Valid() {
		return fmt.Errorf("%w: choice must be agree or disagree", domainerrors.ErrValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(cmd.Comment)) > entities.MaxCommentLength {
		return fmt.Errorf("%w: comment must be at most %d characters",
			domainerrors.ErrValidation, entities.MaxCommentLength)
	}
	return nil
}

func hashInitiateCommand(cmd InitiateCommand) string {
	payload, _ := json.Marshal(map[string]any{
		"initiator_id":       strings.TrimSpace(cmd.InitiatorID),
		"applicant_id":       strings.TrimSpace(cmd.ApplicantID),
		"applicant_name":     strings.TrimSpace(cmd.ApplicantName),
		"store_name":         strings.TrimSpace(cmd.StoreName),
		"current_position":   strings.TrimSpace(cmd.CurrentPosition),
		"target_position":    strings.TrimSpace(cmd.TargetPosition),
		"reason":             strings.TrimSpace(cmd.Reason),
		"vote_duration_days": cmd.VoteDurationDays,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
