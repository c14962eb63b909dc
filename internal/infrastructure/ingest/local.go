package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LocalRecognizer runs an on-device incremental recognizer as a subprocess
// (whisper-stream style): PCM goes in on stdin, interim and final text come
// out on stdout, one line per hypothesis:
//
//	partial <text>
//	final <text>
//
// Lines with any other prefix are ignored.
type LocalRecognizer struct {
	mu      sync.Mutex
	command string
	args    []string
	source  AudioSource
	sink    Sink
	logger  *zap.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
}

// NewLocalRecognizer creates the on-device ingest variant. An empty command
// is tolerated here and rejected by Start.
func NewLocalRecognizer(command string, source AudioSource, sink Sink, logger *zap.Logger) *LocalRecognizer {
	parts := strings.Fields(command)
	name := ""
	args := []string{}
	if len(parts) > 0 {
		name = parts[0]
		args = parts[1:]
	}
	return &LocalRecognizer{
		command: name,
		args:    args,
		source:  source,
		sink:    sink,
		logger:  logger,
	}
}

// Start launches the recognizer process. Returns ErrAlreadyStarted when a
// process is already live.
func (r *LocalRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyStarted
	}
	if r.command == "" {
		return fmt.Errorf("ingest: no recognizer command configured")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	args := append(r.args, "--sample-rate", fmt.Sprint(r.source.SampleRate()))
	cmd := exec.CommandContext(runCtx, r.command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open recognizer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open recognizer stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start recognizer: %w", err)
	}

	r.cmd = cmd
	r.stdin = stdin
	r.cancel = cancel

	go r.pump(runCtx, stdin)
	go r.read(cmd, stdout)

	return nil
}

// Stop terminates the recognizer process. Returns ErrAlreadyStopped when no
// process is live.
func (r *LocalRecognizer) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return ErrAlreadyStopped
	}
	r.stdin.Close()
	r.cancel()
	r.cmd = nil
	r.stdin = nil
	r.cancel = nil
	return nil
}

// Running reports whether a recognizer process is live.
func (r *LocalRecognizer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// pump forwards capture chunks to the recognizer stdin.
func (r *LocalRecognizer) pump(ctx context.Context, stdin io.WriteCloser) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-r.source.Chunks():
			if !ok {
				return
			}
			if _, err := stdin.Write(chunk); err != nil {
				// Writing to a dead process; the read loop reports the exit.
				return
			}
		}
	}
}

// read parses recognizer output lines into events until the process exits.
func (r *LocalRecognizer) read(cmd *exec.Cmd, stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "partial "):
			r.sink(Event{Kind: EventPartialText, Text: strings.TrimPrefix(line, "partial ")})
		case strings.HasPrefix(line, "final "):
			r.sink(Event{Kind: EventFinalText, Text: strings.TrimPrefix(line, "final ")})
		}
	}

	err := cmd.Wait()

	r.mu.Lock()
	stopped := r.cmd == nil || r.cmd != cmd
	r.mu.Unlock()
	if stopped {
		// Deliberate Stop; the exit is not an error.
		return
	}

	r.mu.Lock()
	r.cmd = nil
	r.stdin = nil
	r.cancel = nil
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("local recognizer exited", zap.Error(err))
		r.sink(Event{Kind: EventError, Err: fmt.Errorf("recognizer exited: %w", err)})
		return
	}
	r.sink(Event{Kind: EventEnded})
}
