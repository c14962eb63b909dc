package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

func newEngine(mutate ...func(*Config)) *Engine {
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewEngine(cfg, zap.NewNop())
}

func seg(label, text string, start, end float64) entities.TranscriptSegment {
	return entities.TranscriptSegment{SpeakerLabel: label, Text: text, StartOffset: start, EndOffset: end}
}

func joinedWords(turns []entities.SpeakerTurn) []string {
	var all []string
	for _, t := range turns {
		all = append(all, strings.Fields(t.Text)...)
	}
	return all
}

func TestReconcile_NoSegmentsRendersFlatTranscript(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{Transcript: "hello world"})

	assert.False(t, out.Segmented)
	assert.Empty(t, out.Turns)
	assert.Equal(t, "hello world", out.Transcript)
}

func TestReconcile_DiarizationDisabledIsHardOverride(t *testing.T) {
	e := newEngine(func(c *Config) { c.DiarizationDisabled = true })
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments: []entities.TranscriptSegment{
			seg("speaker_0", "hello world", 0, 2),
		},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", CandidateName: "Anna", SimilarityScore: 0.95},
		},
	})

	assert.False(t, out.Segmented, "disabled diarization must skip segmentation entirely")
	assert.Empty(t, out.Turns)
	assert.Equal(t, "hello world", out.Transcript)
}

func TestReconcile_SourcePriority(t *testing.T) {
	e := newEngine()
	canonical := "alpha beta gamma delta"

	out := e.Reconcile(Input{
		Transcript:         canonical,
		ReconstructedTurns: []entities.TranscriptSegment{seg("A", "alpha beta gamma delta", 0, 4)},
		Segments:           []entities.TranscriptSegment{seg("B", "alpha beta gamma delta", 0, 4)},
	})
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "A", out.Turns[0].SpeakerLabel, "reconstructed turns beat raw segments")

	out = e.Reconcile(Input{
		Transcript: canonical,
		Segments:   []entities.TranscriptSegment{seg("B", "alpha beta gamma delta", 0, 4)},
	})
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "B", out.Turns[0].SpeakerLabel)

	out = e.Reconcile(Input{
		Transcript: canonical,
		Identities: []entities.SpeakerIdentity{
			{Label: "C", SimilarityScore: 0.9, Segments: []entities.TimeRange{{Start: 0, End: 4}}},
		},
	})
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "C", out.Turns[0].SpeakerLabel, "identity time windows are the last resort")
	assert.Equal(t, canonical, out.Turns[0].Text, "windows carry no text, canonical words fill them")
}

func TestConsistency_VerbatimPartitionPasses(t *testing.T) {
	e := newEngine()
	canonical := "one two three four five six"
	segments := []entities.TranscriptSegment{
		seg("A", "one two three", 0, 2),
		seg("B", "four five six", 2, 4),
	}
	assert.True(t, e.consistent(canonical, segments))
}

func TestConsistency_LabelPrefixesAndPunctuationAreNormalized(t *testing.T) {
	e := newEngine()
	canonical := "one two three four five six"
	segments := []entities.TranscriptSegment{
		seg("A", "Speaker 1: One, two, THREE!", 0, 2),
		seg("B", "Speaker 2: four five six.", 2, 4),
	}
	assert.True(t, e.consistent(canonical, segments))
}

func TestConsistency_UnrelatedTextFails(t *testing.T) {
	e := newEngine()
	canonical := "one two three four five six"
	segments := []entities.TranscriptSegment{
		seg("A", "completely different words here", 0, 2),
		seg("B", "nothing in common at all", 2, 4),
	}
	assert.False(t, e.consistent(canonical, segments))
}

func TestConsistency_LengthRatioOutOfBoundsFails(t *testing.T) {
	e := newEngine()
	canonical := "one two three four five six seven eight nine ten"
	segments := []entities.TranscriptSegment{
		seg("A", "one two", 0, 2),
	}
	assert.False(t, e.consistent(canonical, segments), "2 of 10 words is far below the 0.6 floor")
}

func TestConsistency_MissingSegmentTextFails(t *testing.T) {
	e := newEngine()
	segments := []entities.TranscriptSegment{
		seg("A", "one two three", 0, 2),
		seg("B", "", 2, 4),
	}
	assert.False(t, e.consistent("one two three four", segments))
}

func TestRedistribute_EqualDurationsSplitEvenly(t *testing.T) {
	// Two segments with timings [0,2] and [2,4] whose text failed the
	// consistency check against a 6-word canonical transcript: each gets 3.
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "one two three four five six",
		Segments: []entities.TranscriptSegment{
			seg("speaker_0", "unrelated gibberish entirely", 0, 2),
			seg("speaker_1", "more unrelated gibberish", 2, 4),
		},
	})

	require.Len(t, out.Turns, 2)
	assert.Equal(t, "one two three", out.Turns[0].Text)
	assert.Equal(t, "four five six", out.Turns[1].Text)
}

func TestRedistribute_ProportionalToDuration(t *testing.T) {
	words := strings.Fields("w1 w2 w3 w4 w5 w6 w7 w8")
	segments := []entities.TranscriptSegment{
		seg("A", "", 0, 6),
		seg("B", "", 6, 8),
	}
	out := redistribute(strings.Join(words, " "), segments)

	assert.Len(t, strings.Fields(out[0].Text), 6)
	assert.Len(t, strings.Fields(out[1].Text), 2)
}

func TestRedistribute_ZeroDurationForcesEvenSplit(t *testing.T) {
	out := redistribute("a b c d e f", []entities.TranscriptSegment{
		seg("A", "", 0, 0),
		seg("B", "", 0, 0),
		seg("C", "", 0, 0),
	})
	assert.Equal(t, "a b", out[0].Text)
	assert.Equal(t, "c d", out[1].Text)
	assert.Equal(t, "e f", out[2].Text)
}

func TestRedistribute_UntimedSegmentTakesAverageShare(t *testing.T) {
	// Timed segments stay proportional to each other (4s vs 2s); the untimed
	// middle segment weighs as much as the average timed one (3s equivalent).
	out := redistribute("w1 w2 w3 w4 w5 w6 w7 w8 w9", []entities.TranscriptSegment{
		seg("A", "", 0, 4),
		seg("B", "", 0, 0),
		seg("C", "", 4, 6),
	})
	assert.Len(t, strings.Fields(out[0].Text), 4)
	assert.Len(t, strings.Fields(out[1].Text), 3)
	assert.Len(t, strings.Fields(out[2].Text), 2)
}

func TestRedistribute_NoWordLoss(t *testing.T) {
	canonical := "the quick brown fox jumps over the lazy dog again and again"
	cases := [][]entities.TranscriptSegment{
		{seg("A", "", 0, 1)},
		{seg("A", "", 0, 1), seg("B", "", 1, 2)},
		{seg("A", "", 0, 0.7), seg("B", "", 0.7, 1.1), seg("C", "", 1.1, 5)},
		{seg("A", "", 0, 0), seg("B", "", 3, 3), seg("C", "", 5, 9), seg("D", "", 9, 10)},
		{seg("A", "", 0, 1), seg("B", "", 1, 1), seg("C", "", 1, 2), seg("D", "", 2, 2), seg("E", "", 2, 3)},
	}
	want := len(strings.Fields(canonical))
	for _, segments := range cases {
		out := redistribute(canonical, segments)
		got := 0
		for _, s := range out {
			got += len(strings.Fields(s.Text))
		}
		assert.Equal(t, want, got, "redistribution must never drop or duplicate words")
	}
}

func TestReconcile_InconsistentTextKeepsTiming(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "one two three four five six",
		Segments: []entities.TranscriptSegment{
			seg("A", "totally unrelated text", 0, 2),
			seg("B", "still unrelated entirely", 2, 4),
		},
	})

	require.Len(t, out.Turns, 2)
	assert.Equal(t, 0.0, out.Turns[0].StartOffset)
	assert.Equal(t, 2.0, out.Turns[0].EndOffset)
	assert.Equal(t, 2.0, out.Turns[1].StartOffset)
	assert.Equal(t, 4.0, out.Turns[1].EndOffset)
	assert.Equal(t, strings.Fields("one two three four five six"), joinedWords(out.Turns))
}

func TestMergeConsecutive_SameSpeakerTurnsFold(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "one two three four five six",
		Segments: []entities.TranscriptSegment{
			seg("A", "one two", 0, 1),
			seg("A", "three four", 1, 2),
			seg("B", "five six", 2, 3),
		},
	})

	require.Len(t, out.Turns, 2)
	assert.Equal(t, "one two three four", out.Turns[0].Text)
	assert.Equal(t, 0.0, out.Turns[0].StartOffset)
	assert.Equal(t, 2.0, out.Turns[0].EndOffset)
	assert.Equal(t, "five six", out.Turns[1].Text)
}

func TestIdentity_BelowStrongThresholdFallsBack(t *testing.T) {
	// Similarity 0.65 for speaker_0 is below the 0.70 strong threshold:
	// the name falls back to the positional "Speaker 1".
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", CandidateName: "Anna", SimilarityScore: 0.65},
		},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Speaker 1", out.Turns[0].DisplayName)
	assert.False(t, out.Turns[0].HighConfidence)
}

func TestIdentity_StrongAliasMarkedHighConfidence(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", CandidateName: "Anna", SimilarityScore: 0.91},
		},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Anna", out.Turns[0].DisplayName)
	assert.True(t, out.Turns[0].HighConfidence)
	assert.Equal(t, "Anna", out.Names["speaker_0"])
}

func TestIdentity_StrongButNotHighConfidence(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", CandidateName: "Anna", SimilarityScore: 0.75},
		},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Anna", out.Turns[0].DisplayName)
	assert.False(t, out.Turns[0].HighConfidence, "0.75 clears strong (0.70) but not high confidence (0.80)")
}

func TestIdentity_EmailLocalPartFallback(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", OwnerEmail: "anna.schmidt@example.com", SimilarityScore: 0.85},
		},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "anna.schmidt", out.Turns[0].DisplayName)
}

func TestIdentity_UserAssignedNameWins(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "speaker_0", CandidateName: "Anna", SimilarityScore: 0.95},
		},
		Names: entities.SpeakerNameMap{"speaker_0": "Boss"},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Boss", out.Turns[0].DisplayName, "user-assigned names beat voice matches")
}

func TestIdentity_ReadableLabelIsKept(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("Anna Schmidt", "hello world", 0, 2)},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Anna Schmidt", out.Turns[0].DisplayName)
}

func TestIdentity_GenericLabelsGetPositionalNames(t *testing.T) {
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "one two three four five six",
		Segments: []entities.TranscriptSegment{
			seg("speaker_0", "one two three", 0, 2),
			seg("speaker_1", "four five six", 2, 4),
		},
	})

	require.Len(t, out.Turns, 2)
	assert.Equal(t, "Speaker 1", out.Turns[0].DisplayName)
	assert.Equal(t, "Speaker 2", out.Turns[1].DisplayName)
}

func TestIdentity_SingleSpeakerShortcut(t *testing.T) {
	// One distinct label, one hypothesis, no overlapping time windows: the
	// identity still maps directly onto the label.
	e := newEngine()
	out := e.Reconcile(Input{
		Transcript: "hello world",
		Segments:   []entities.TranscriptSegment{seg("speaker_0", "hello world", 0, 2)},
		Identities: []entities.SpeakerIdentity{
			{Label: "voice-print-7", CandidateName: "Anna", SimilarityScore: 0.88},
		},
	})

	require.Len(t, out.Turns, 1)
	assert.Equal(t, "Anna", out.Turns[0].DisplayName)
	assert.True(t, out.Turns[0].HighConfidence)
}

func TestLearningCandidates_GateAt072(t *testing.T) {
	identities := []entities.SpeakerIdentity{
		{Label: "speaker_0", OwnerEmail: "anna@example.com", SimilarityScore: 0.73},
		{Label: "speaker_1", OwnerEmail: "bob@example.com", SimilarityScore: 0.71},
	}
	names := entities.SpeakerNameMap{"speaker_0": "Anna", "speaker_1": "Bob"}

	events := entities.LearningCandidates(names, identities, 0.72)
	require.Len(t, events, 1)
	assert.Equal(t, "speaker_0", events[0].Label)
	assert.Equal(t, "Anna", events[0].Name)
}
