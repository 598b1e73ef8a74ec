package vision

import (
	"context"
	"sync"
)

// FrameBuffer is a Camera fed by frames the client pushes over the live socket.
type FrameBuffer struct {
	mu    sync.Mutex
	frame []byte
}

// Push stores the latest JPEG frame.
func (b *FrameBuffer) Push(frame []byte) {
	b.mu.Lock()
	b.frame = append(b.frame[:0], frame...)
	b.mu.Unlock()
}

// Capture returns a copy of the latest frame.
func (b *FrameBuffer) Capture(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frame) == 0 {
		return nil, ErrNoFrame
	}
	return append([]byte(nil), b.frame...), nil
}

// Clear drops the stored frame so a later Capture cannot see it.
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	b.frame = nil
	b.mu.Unlock()
}
