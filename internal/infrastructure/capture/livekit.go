package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	lkclient "github.com/meetscribe/capture-agent/internal/infrastructure/external/livekit"
)

// RoomDevice taps a LiveKit room as the capture source: the agent joins with
// a subscribe-only token and forwards the opus payloads of every subscribed
// audio track. Chunks from this device are codec frames, not PCM, so the
// session feeds them to the chunk recorder for archival and relies on the
// remote diarization pass (status polling) for transcription.
type RoomDevice struct {
	mu       sync.Mutex
	url      string
	roomName string
	identity string
	tokens   lkclient.Client
	logger   *zap.Logger

	room    *lksdk.Room
	chunks  chan []byte
	enabled bool
}

// NewRoomDevice creates a LiveKit room capture device.
func NewRoomDevice(url, roomName, identity string, tokens lkclient.Client, logger *zap.Logger) *RoomDevice {
	return &RoomDevice{
		url:      url,
		roomName: roomName,
		identity: identity,
		tokens:   tokens,
		logger:   logger,
	}
}

// Acquire joins the room as a subscriber.
func (d *RoomDevice) Acquire(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.room != nil {
		return fmt.Errorf("capture: device already acquired")
	}

	token, err := d.tokens.GenerateSubscriberToken(d.identity, d.roomName, time.Hour)
	if err != nil {
		return fmt.Errorf("failed to generate subscriber token: %w", err)
	}

	d.chunks = make(chan []byte, 64)
	d.enabled = true

	callback := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: d.onTrackSubscribed,
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(d.url, token, callback)
	if err != nil {
		d.chunks = nil
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	d.room = room

	return nil
}

// Release leaves the room and closes the chunk channel.
func (d *RoomDevice) Release() {
	d.mu.Lock()
	room := d.room
	d.room = nil
	chunks := d.chunks
	d.mu.Unlock()

	if room == nil {
		return
	}
	room.Disconnect()
	close(chunks)
}

// SetTrackEnabled suspends or resumes chunk delivery.
func (d *RoomDevice) SetTrackEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// TrackEnabled reports whether the audio track is delivering chunks.
func (d *RoomDevice) TrackEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Chunks returns the opus frame stream. Closed on Release.
func (d *RoomDevice) Chunks() <-chan []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunks
}

// SampleRate returns the nominal opus sample rate.
func (d *RoomDevice) SampleRate() int {
	return 48000
}

// onTrackSubscribed pumps one remote audio track into the chunk channel.
func (d *RoomDevice) onTrackSubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	d.logger.Info("subscribed to audio track",
		zap.String("participant", rp.Identity()),
		zap.String("track", publication.SID()),
	)

	go func() {
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				return
			}

			d.mu.Lock()
			room := d.room
			enabled := d.enabled
			chunks := d.chunks
			d.mu.Unlock()
			if room == nil {
				return
			}
			if !enabled || len(pkt.Payload) == 0 {
				continue
			}

			select {
			case chunks <- pkt.Payload:
			default:
				// Drop rather than stall the RTP reader.
			}
		}
	}()
}
