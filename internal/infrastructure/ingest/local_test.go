package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type silentSource struct {
	chunks chan []byte
}

func (s *silentSource) Chunks() <-chan []byte { return s.chunks }
func (s *silentSource) SampleRate() int       { return 16000 }

func TestLocalRecognizer_EmptyCommandFailsStart(t *testing.T) {
	for _, command := range []string{"", "   "} {
		r := NewLocalRecognizer(command, &silentSource{}, func(Event) {}, zap.NewNop())
		err := r.Start(context.Background())
		require.Error(t, err, "command %q must not start", command)
		assert.False(t, r.Running())
	}
}

func TestLocalRecognizer_CommandSplitsIntoArgs(t *testing.T) {
	r := NewLocalRecognizer("whisper-stream --model base", &silentSource{}, func(Event) {}, zap.NewNop())
	assert.Equal(t, "whisper-stream", r.command)
	assert.Equal(t, []string{"--model", "base"}, r.args)
}
