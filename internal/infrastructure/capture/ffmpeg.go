package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// MicDevice captures the local microphone through an ffmpeg subprocess
// emitting raw mono PCM16. While the track is disabled chunks are read and
// dropped so the subprocess never blocks on a full pipe.
type MicDevice struct {
	mu         sync.Mutex
	inputSpec  string
	sampleRate int
	logger     *zap.Logger

	cmd     *exec.Cmd
	cancel  context.CancelFunc
	chunks  chan []byte
	enabled bool
}

// NewMicDevice creates a microphone capture device. inputSpec names the
// ffmpeg input ("default" for the default device).
func NewMicDevice(inputSpec string, sampleRate int, logger *zap.Logger) *MicDevice {
	return &MicDevice{
		inputSpec:  inputSpec,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// inputFormat picks the ffmpeg capture backend for the host platform.
func inputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

// Acquire opens the microphone. A failure to start (typically a missing or
// denied input device) maps to ErrPermissionDenied.
func (d *MicDevice) Acquire(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("capture: device already acquired")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, "ffmpeg",
		"-f", inputFormat(),
		"-i", d.inputSpec,
		"-ac", "1",
		"-ar", fmt.Sprint(d.sampleRate),
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open capture pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	d.cmd = cmd
	d.cancel = cancel
	d.chunks = make(chan []byte, 16)
	d.enabled = true

	go d.read(runCtx, cmd, stdout)

	return nil
}

// Release stops the capture process and closes the chunk channel. Safe to
// call more than once.
func (d *MicDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return
	}
	d.cancel()
	d.cmd = nil
	d.cancel = nil
}

// SetTrackEnabled suspends or resumes chunk delivery without releasing the
// device.
func (d *MicDevice) SetTrackEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// TrackEnabled reports whether the audio track is delivering chunks.
func (d *MicDevice) TrackEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Chunks returns the PCM chunk stream. Closed on Release.
func (d *MicDevice) Chunks() <-chan []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunks
}

// SampleRate returns the capture sample rate in Hz.
func (d *MicDevice) SampleRate() int {
	return d.sampleRate
}

// read pumps PCM from ffmpeg into the chunk channel until released.
func (d *MicDevice) read(ctx context.Context, cmd *exec.Cmd, stdout io.Reader) {
	defer func() {
		cmd.Wait()
		d.mu.Lock()
		close(d.chunks)
		d.mu.Unlock()
	}()

	// 100ms of mono PCM16 per chunk.
	buf := make([]byte, d.sampleRate/10*2)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := io.ReadFull(stdout, buf)
		if n > 0 && d.TrackEnabled() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case d.chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Warn("capture stream ended", zap.Error(err))
			}
			return
		}
	}
}
