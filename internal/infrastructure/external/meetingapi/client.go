// Package meetingapi is the HTTP client for the hosted meeting backend. It
// implements the meeting store, usage accounting, quota, speaker name and
// status polling collaborators the capture core consumes. The contract is
// behavioral (idempotent upserts, id promotion, eventual consistency), not a
// fixed schema.
package meetingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/capture-agent/internal/domain/entities"
)

// Client is a minimal meeting backend client
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a meeting backend client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return entities.ErrMeetingNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("meeting backend returned status %d for %s %s", resp.StatusCode, method, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// saveMeetingResponse carries the durable id the backend assigned.
type saveMeetingResponse struct {
	ID uuid.UUID `json:"id"`
}

// SaveMeeting upserts the record. The backend may promote a temporary id to
// a durable one; the returned id must be adopted for all subsequent calls.
func (c *Client) SaveMeeting(ctx context.Context, record *entities.MeetingRecord) (uuid.UUID, error) {
	var resp saveMeetingResponse
	if err := c.do(ctx, http.MethodPut, "/v1/meetings/"+record.ID.String(), record, &resp); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save meeting: %w", err)
	}
	if resp.ID == uuid.Nil {
		return record.ID, nil
	}
	return resp.ID, nil
}

// FindByID fetches a meeting record.
func (c *Client) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingRecord, error) {
	var record entities.MeetingRecord
	if err := c.do(ctx, http.MethodGet, "/v1/meetings/"+id.String(), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// markCountedResponse reports whether this call flipped the marker.
type markCountedResponse struct {
	WasNewlyCounted bool `json:"was_newly_counted"`
}

// MarkCountedIfNeeded asks the backend to flip the per-meeting idempotency
// marker; true means this call was the one that flipped it.
func (c *Client) MarkCountedIfNeeded(ctx context.Context, meetingID uuid.UUID) (bool, error) {
	var resp markCountedResponse
	if err := c.do(ctx, http.MethodPost, "/v1/meetings/"+meetingID.String()+"/usage/mark", nil, &resp); err != nil {
		return false, fmt.Errorf("failed to mark meeting counted: %w", err)
	}
	return resp.WasNewlyCounted, nil
}

// IncrementUsage adds one billable meeting to the user's usage counter.
func (c *Client) IncrementUsage(ctx context.Context, meetingID uuid.UUID) error {
	if err := c.do(ctx, http.MethodPost, "/v1/meetings/"+meetingID.String()+"/usage/increment", nil, nil); err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// CanCreateSession consults the quota collaborator once at session start.
func (c *Client) CanCreateSession(ctx context.Context, userID uuid.UUID) (entities.QuotaDecision, error) {
	var decision entities.QuotaDecision
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+userID.String()+"/quota", nil, &decision); err != nil {
		return entities.QuotaDecision{}, fmt.Errorf("failed to check quota: %w", err)
	}
	return decision, nil
}

// speakerNamesPayload is the wire form of the speaker name map.
type speakerNamesPayload struct {
	Names entities.SpeakerNameMap `json:"names"`
}

// speakerNamesResponse returns the stored map plus learning events.
type speakerNamesResponse struct {
	Names          entities.SpeakerNameMap  `json:"names"`
	LearningEvents []entities.LearningEvent `json:"learning_events,omitempty"`
}

// GetSpeakerNames fetches the per-meeting speaker name map.
func (c *Client) GetSpeakerNames(ctx context.Context, meetingID uuid.UUID) (entities.SpeakerNameMap, error) {
	var resp speakerNamesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/meetings/"+meetingID.String()+"/speakers", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get speaker names: %w", err)
	}
	if resp.Names == nil {
		resp.Names = entities.SpeakerNameMap{}
	}
	return resp.Names, nil
}

// SaveSpeakerNames persists renames and returns the stored map plus any
// voice-profile learning events the backend derived from them.
func (c *Client) SaveSpeakerNames(ctx context.Context, meetingID uuid.UUID, names entities.SpeakerNameMap) (entities.SpeakerNameMap, []entities.LearningEvent, error) {
	var resp speakerNamesResponse
	if err := c.do(ctx, http.MethodPut, "/v1/meetings/"+meetingID.String()+"/speakers", speakerNamesPayload{Names: names}, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to save speaker names: %w", err)
	}
	if resp.Names == nil {
		resp.Names = entities.SpeakerNameMap{}
	}
	return resp.Names, resp.LearningEvents, nil
}

// PollStatus reports the remote transcription/diarization job state.
func (c *Client) PollStatus(ctx context.Context, meetingID uuid.UUID) (*entities.TranscriptionStatus, error) {
	var status entities.TranscriptionStatus
	if err := c.do(ctx, http.MethodGet, "/v1/meetings/"+meetingID.String()+"/transcription", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to poll transcription status: %w", err)
	}
	return &status, nil
}
