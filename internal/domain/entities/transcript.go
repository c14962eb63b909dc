package entities

// TranscriptSegment is one contiguous stretch of speech attributed to a
// single speaker label. Segments are normalized at the ingestion boundary
// (diarizers variously emit `speaker`, `speakerId`, millisecond or second
// offsets) and immutable once received.
type TranscriptSegment struct {
	SpeakerLabel string  `json:"speaker_label"`
	Text         string  `json:"text"`
	StartOffset  float64 `json:"start_offset"` // seconds
	EndOffset    float64 `json:"end_offset"`   // seconds
	Confidence   float64 `json:"confidence,omitempty"`
}

// Duration returns the segment length in seconds, zero when timing is
// missing or inverted.
func (s TranscriptSegment) Duration() float64 {
	d := s.EndOffset - s.StartOffset
	if d < 0 {
		return 0
	}
	return d
}

// TranscriptionJobStatus is the remote transcription/diarization job state.
type TranscriptionJobStatus string

const (
	TranscriptionQueued     TranscriptionJobStatus = "queued"
	TranscriptionProcessing TranscriptionJobStatus = "processing"
	TranscriptionCompleted  TranscriptionJobStatus = "completed"
	TranscriptionFailed     TranscriptionJobStatus = "failed"
)

// TranscriptionStatus is the result of polling the remote diarization job
// for a meeting. Transcript is the canonical flat text once available.
type TranscriptionStatus struct {
	Status             TranscriptionJobStatus `json:"status"`
	Stage              string                 `json:"stage,omitempty"`
	Progress           int                    `json:"progress,omitempty"`
	Transcript         string                 `json:"transcript,omitempty"`
	Segments           []TranscriptSegment    `json:"segments,omitempty"`
	ReconstructedTurns []TranscriptSegment    `json:"reconstructed_turns,omitempty"`
	Identities         []SpeakerIdentity      `json:"identities,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (t *TranscriptionStatus) Terminal() bool {
	return t.Status == TranscriptionCompleted || t.Status == TranscriptionFailed
}
