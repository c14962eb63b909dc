package meeting

// RenameSpeakersRequest assigns display names to diarized speaker labels
type RenameSpeakersRequest struct {
	Names map[string]string `json:"names" validate:"required,min=1"`
}
