package capture

import (
	"context"
	"sync"
)

// TapDevice wraps a Device and mirrors every delivered chunk into a side
// sink, typically the media chunk recorder. The pass-through stream keeps
// the wrapped device's ownership and pause semantics untouched.
type TapDevice struct {
	mu      sync.Mutex
	inner   Device
	tap     func([]byte)
	onClose func()
	out     chan []byte
}

// NewTapDevice creates a tapping wrapper. onClose runs once the wrapped
// stream ends, letting the recorder flush its final chunk.
func NewTapDevice(inner Device, tap func([]byte), onClose func()) *TapDevice {
	return &TapDevice{inner: inner, tap: tap, onClose: onClose}
}

func (d *TapDevice) Acquire(ctx context.Context) error {
	if err := d.inner.Acquire(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.out = make(chan []byte, 16)
	out := d.out
	d.mu.Unlock()

	go func() {
		defer func() {
			close(out)
			if d.onClose != nil {
				d.onClose()
			}
		}()
		for chunk := range d.inner.Chunks() {
			d.tap(chunk)
			out <- chunk
		}
	}()
	return nil
}

func (d *TapDevice) Release() {
	d.inner.Release()
}

func (d *TapDevice) SetTrackEnabled(enabled bool) {
	d.inner.SetTrackEnabled(enabled)
}

func (d *TapDevice) TrackEnabled() bool {
	return d.inner.TrackEnabled()
}

func (d *TapDevice) Chunks() <-chan []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out
}

func (d *TapDevice) SampleRate() int {
	return d.inner.SampleRate()
}
