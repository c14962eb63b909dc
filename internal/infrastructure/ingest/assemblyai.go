package ingest

import (
	"context"
	"fmt"
	"sync"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"
)

// RemoteStream is the remote streaming ingest variant backed by the
// AssemblyAI real-time API. Raw audio chunks go up the websocket; partial
// and final transcripts come back asynchronously. Diarization for this
// variant arrives later through the status poller, not on the stream.
type RemoteStream struct {
	mu     sync.Mutex
	apiKey string
	source AudioSource
	sink   Sink
	logger *zap.Logger

	client *aai.RealTimeClient
	cancel context.CancelFunc
}

// NewRemoteStream creates the remote streaming ingest variant.
func NewRemoteStream(apiKey string, source AudioSource, sink Sink, logger *zap.Logger) *RemoteStream {
	return &RemoteStream{
		apiKey: apiKey,
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Start connects the real-time session and begins pumping audio. Returns
// ErrAlreadyStarted when a connection is already live.
func (s *RemoteStream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return ErrAlreadyStarted
	}

	transcriber := &aai.RealTimeTranscriber{
		OnPartialTranscript: func(t aai.PartialTranscript) {
			s.sink(Event{
				Kind:        EventPartialText,
				Text:        t.Text,
				StartOffset: float64(t.AudioStart) / 1000,
				EndOffset:   float64(t.AudioEnd) / 1000,
				Confidence:  t.Confidence,
			})
		},
		OnFinalTranscript: func(t aai.FinalTranscript) {
			s.sink(Event{
				Kind:        EventFinalText,
				Text:        t.Text,
				StartOffset: float64(t.AudioStart) / 1000,
				EndOffset:   float64(t.AudioEnd) / 1000,
				Confidence:  t.Confidence,
			})
		},
		OnSessionTerminated: func(ev aai.SessionTerminated) {
			s.sink(Event{Kind: EventEnded})
		},
		OnError: func(err error) {
			s.sink(Event{Kind: EventError, Err: err})
		},
	}

	client := aai.NewRealTimeClientWithOptions(
		aai.WithRealTimeAPIKey(s.apiKey),
		aai.WithRealTimeSampleRate(int(s.source.SampleRate())),
		aai.WithRealTimeTranscriber(transcriber),
	)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect realtime transcription: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.client = client
	s.cancel = cancel

	go s.pump(pumpCtx, client)

	return nil
}

// Stop disconnects the real-time session. Returns ErrAlreadyStopped when no
// connection is live.
func (s *RemoteStream) Stop(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	cancel := s.cancel
	s.client = nil
	s.cancel = nil
	s.mu.Unlock()

	if client == nil {
		return ErrAlreadyStopped
	}
	cancel()
	if err := client.Disconnect(ctx, true); err != nil {
		return fmt.Errorf("failed to disconnect realtime transcription: %w", err)
	}
	return nil
}

// Running reports whether the real-time connection is live.
func (s *RemoteStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// pump forwards capture chunks onto the websocket until cancelled or the
// source closes.
func (s *RemoteStream) pump(ctx context.Context, client *aai.RealTimeClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-s.source.Chunks():
			if !ok {
				return
			}
			if err := client.Send(ctx, chunk); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("realtime send failed", zap.Error(err))
				s.sink(Event{Kind: EventError, Err: err})
				return
			}
		}
	}
}
