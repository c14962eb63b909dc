// Package meeting serves finished meetings: it combines the durable record,
// the remote diarization job output and the stored speaker names into the
// reconciled, display-ready transcript.
package meeting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/domain/repositories"
	"github.com/meetscribe/capture-agent/internal/usecase/reconcile"
)

// Service reads meetings and reconciles their transcripts.
type Service struct {
	store  repositories.MeetingStore
	names  repositories.SpeakerNameRepository
	poller repositories.StatusPoller
	engine *reconcile.Engine
	logger *zap.Logger
}

// NewService creates a meeting service.
func NewService(
	store repositories.MeetingStore,
	names repositories.SpeakerNameRepository,
	poller repositories.StatusPoller,
	engine *reconcile.Engine,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:  store,
		names:  names,
		poller: poller,
		engine: engine,
		logger: logger,
	}
}

// Get returns the raw meeting record.
func (s *Service) Get(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingRecord, error) {
	return s.store.FindByID(ctx, meetingID)
}

// Status reports the remote transcription/diarization job state.
func (s *Service) Status(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error) {
	return s.poller.PollStatus(ctx, meetingID)
}

// ReconciledTurns builds the speaker-attributed view of a meeting. The
// freshest diarization output wins: job results from the poller override the
// copies stored on the record, and the record's transcript is the canonical
// fallback when the job carries none. Poller and name lookups are best
// effort; the record alone is enough to render.
func (s *Service) ReconciledTurns(ctx context.Context, meetingID uuid.UUID) (*reconcile.Result, error) {
	record, err := s.store.FindByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}

	in := reconcile.Input{
		Transcript: record.Transcript,
		Segments:   record.Segments,
		Identities: record.Identities,
		Names:      record.SpeakerNames.Data(),
	}

	if status, err := s.poller.PollStatus(ctx, meetingID); err != nil {
		s.logger.Warn("diarization status unavailable, rendering from record",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
	} else {
		if status.Transcript != "" {
			in.Transcript = status.Transcript
		}
		if len(status.ReconstructedTurns) > 0 {
			in.ReconstructedTurns = status.ReconstructedTurns
		}
		if len(status.Segments) > 0 {
			in.Segments = status.Segments
		}
		if len(status.Identities) > 0 {
			in.Identities = status.Identities
		}
	}

	if names, err := s.names.GetSpeakerNames(ctx, meetingID); err != nil {
		s.logger.Warn("speaker names unavailable",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
	} else if len(names) > 0 {
		in.Names = names
	}

	out := s.engine.Reconcile(in)
	return &out, nil
}

// ApplyJobUpdate folds a diarization job update into the stored record, so
// the record stays renderable even when the job source later becomes
// unreachable. Empty fields on the update never erase stored material.
func (s *Service) ApplyJobUpdate(ctx context.Context, meetingID uuid.UUID, status *entities.TranscriptionStatus) error {
	record, err := s.store.FindByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("failed to load meeting: %w", err)
	}

	record.TranscriptionStatus = status.Status
	if status.Transcript != "" {
		record.Transcript = status.Transcript
	}
	if len(status.Segments) > 0 {
		record.Segments = status.Segments
	}
	if len(status.Identities) > 0 {
		record.Identities = status.Identities
	}

	if _, err := s.store.SaveMeeting(ctx, record); err != nil {
		return fmt.Errorf("failed to store job update: %w", err)
	}
	return nil
}

// RenameSpeakers persists user-assigned speaker names and returns the stored
// map plus any voice-profile learning events derived from the renames.
func (s *Service) RenameSpeakers(ctx context.Context, meetingID uuid.UUID, names entities.SpeakerNameMap) (entities.SpeakerNameMap, []entities.LearningEvent, error) {
	stored, events, err := s.names.SaveSpeakerNames(ctx, meetingID, names)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save speaker names: %w", err)
	}
	return stored, events, nil
}
