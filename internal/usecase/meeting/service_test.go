package meeting

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/usecase/reconcile"
)

type fakeStore struct {
	record *entities.MeetingRecord
	saves  int
}

func (f *fakeStore) SaveMeeting(ctx context.Context, record *entities.MeetingRecord) (uuid.UUID, error) {
	f.record = record
	f.saves++
	return record.ID, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingRecord, error) {
	if f.record == nil {
		return nil, entities.ErrMeetingNotFound
	}
	return f.record, nil
}

type fakePoller struct {
	status *entities.TranscriptionStatus
	err    error
}

func (f *fakePoller) PollStatus(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error) {
	return f.status, f.err
}

type fakeNames struct {
	names  entities.SpeakerNameMap
	events []entities.LearningEvent
	err    error
}

func (f *fakeNames) GetSpeakerNames(ctx context.Context, meetingID uuid.UUID) (entities.SpeakerNameMap, error) {
	return f.names, f.err
}

func (f *fakeNames) SaveSpeakerNames(ctx context.Context, meetingID uuid.UUID, names entities.SpeakerNameMap) (entities.SpeakerNameMap, []entities.LearningEvent, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.names = names.Clone()
	return f.names, f.events, nil
}

func newService(store *fakeStore, poller *fakePoller, names *fakeNames) *Service {
	engine := reconcile.NewEngine(reconcile.DefaultConfig(), zap.NewNop())
	return NewService(store, names, poller, engine, zap.NewNop())
}

func TestReconciledTurns_JobOutputOverridesRecord(t *testing.T) {
	record := entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "stale transcript copy words"

	store := &fakeStore{record: record}
	poller := &fakePoller{status: &entities.TranscriptionStatus{
		Status:     entities.TranscriptionCompleted,
		Transcript: "one two three four five six",
		Segments: []entities.TranscriptSegment{
			{SpeakerLabel: "speaker_0", Text: "one two three", StartOffset: 0, EndOffset: 2},
			{SpeakerLabel: "speaker_1", Text: "four five six", StartOffset: 2, EndOffset: 4},
		},
	}}
	svc := newService(store, poller, &fakeNames{})

	out, err := svc.ReconciledTurns(context.Background(), record.ID)
	require.NoError(t, err)
	require.True(t, out.Segmented)
	require.Len(t, out.Turns, 2)
	assert.Equal(t, "one two three", out.Turns[0].Text)
	assert.Equal(t, "Speaker 1", out.Turns[0].DisplayName)
}

func TestReconciledTurns_PollerFailureFallsBackToRecord(t *testing.T) {
	record := entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"

	store := &fakeStore{record: record}
	poller := &fakePoller{err: errors.New("backend unavailable")}
	svc := newService(store, poller, &fakeNames{})

	out, err := svc.ReconciledTurns(context.Background(), record.ID)
	require.NoError(t, err, "the record alone must be enough to render")
	assert.False(t, out.Segmented)
	assert.Equal(t, "hello world", out.Transcript)
}

func TestReconciledTurns_UserNamesApply(t *testing.T) {
	record := entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"
	record.Segments = []entities.TranscriptSegment{
		{SpeakerLabel: "speaker_0", Text: "hello world", StartOffset: 0, EndOffset: 2},
	}

	store := &fakeStore{record: record}
	names := &fakeNames{names: entities.SpeakerNameMap{"speaker_0": "Anna"}}
	svc := newService(store, &fakePoller{err: errors.New("offline")}, names)

	out, err := svc.ReconciledTurns(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Anna", out.Turns[0].DisplayName)
}

func TestReconciledTurns_UnknownMeeting(t *testing.T) {
	svc := newService(&fakeStore{}, &fakePoller{}, &fakeNames{})
	_, err := svc.ReconciledTurns(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
}

func TestApplyJobUpdate_FoldsOutputIntoRecord(t *testing.T) {
	record := entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"

	store := &fakeStore{record: record}
	svc := newService(store, &fakePoller{}, &fakeNames{})

	err := svc.ApplyJobUpdate(context.Background(), record.ID, &entities.TranscriptionStatus{
		Status:     entities.TranscriptionCompleted,
		Transcript: "hello world again",
		Segments: []entities.TranscriptSegment{
			{SpeakerLabel: "speaker_0", Text: "hello world again", StartOffset: 0, EndOffset: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, entities.TranscriptionCompleted, store.record.TranscriptionStatus)
	assert.Equal(t, "hello world again", store.record.Transcript)
	require.Len(t, store.record.Segments, 1)
}

func TestApplyJobUpdate_EmptyFieldsKeepStoredMaterial(t *testing.T) {
	record := entities.NewMeetingRecord(uuid.New(), "standup", "work")
	record.Transcript = "hello world"
	record.Segments = []entities.TranscriptSegment{
		{SpeakerLabel: "speaker_0", Text: "hello world", StartOffset: 0, EndOffset: 2},
	}

	store := &fakeStore{record: record}
	svc := newService(store, &fakePoller{}, &fakeNames{})

	err := svc.ApplyJobUpdate(context.Background(), record.ID, &entities.TranscriptionStatus{
		Status: entities.TranscriptionProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TranscriptionProcessing, store.record.TranscriptionStatus)
	assert.Equal(t, "hello world", store.record.Transcript)
	assert.Len(t, store.record.Segments, 1)
}

func TestRenameSpeakers_ReturnsLearningEvents(t *testing.T) {
	names := &fakeNames{events: []entities.LearningEvent{
		{Label: "speaker_0", Name: "Anna", SimilarityScore: 0.85},
	}}
	svc := newService(&fakeStore{}, &fakePoller{}, names)

	stored, events, err := svc.RenameSpeakers(context.Background(), uuid.New(), entities.SpeakerNameMap{"speaker_0": "Anna"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", stored["speaker_0"])
	require.Len(t, events, 1)
	assert.Equal(t, "Anna", events[0].Name)
}
