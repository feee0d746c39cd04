// File: internal/services/turn/memory.go
package turn

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is the single-node stream backend. It holds the same
// frame-log contract as the redis backend and is the default for
// development and single-instance deployments.
type MemoryBackend struct {
	mu      sync.Mutex
	streams map[string]*memoryStream
	stopCh  chan struct{}
}

type memoryStream struct {
	frames    [][]byte
	done      bool
	doneAt    time.Time
	followers map[chan []byte]struct{}
}

func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		streams: make(map[string]*memoryStream),
		stopCh:  make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

// Stop terminates the retention janitor.
func (b *MemoryBackend) Stop() {
	close(b.stopCh)
}

func (b *MemoryBackend) Append(ctx context.Context, streamID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.getOrCreate(streamID)
	s.frames = append(s.frames, frame)
	for ch := range s.followers {
		select {
		case ch <- frame:
		default:
			// A follower that cannot keep up falls back to replaying
			// on its next attach; never stall the producer.
		}
	}
	return nil
}

func (b *MemoryBackend) Close(ctx context.Context, streamID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.getOrCreate(streamID)
	s.done = true
	s.doneAt = time.Now()
	for ch := range s.followers {
		close(ch)
	}
	s.followers = make(map[chan []byte]struct{})
	return nil
}

func (b *MemoryBackend) Replay(ctx context.Context, streamID string) ([][]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.streams[streamID]
	if !ok {
		return nil, false, ErrStreamGone
	}
	frames := make([][]byte, len(s.frames))
	copy(frames, s.frames)
	return frames, s.done, nil
}

func (b *MemoryBackend) Follow(ctx context.Context, streamID string) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.streams[streamID]
	if !ok {
		return nil, nil, ErrStreamGone
	}

	ch := make(chan []byte, 256)
	if s.done {
		close(ch)
		return ch, func() {}, nil
	}

	s.followers[ch] = struct{}{}
	detach := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, still := s.followers[ch]; still {
			delete(s.followers, ch)
			close(ch)
		}
	}
	return ch, detach, nil
}

// getOrCreate must be called with the lock held.
func (b *MemoryBackend) getOrCreate(streamID string) *memoryStream {
	s, ok := b.streams[streamID]
	if !ok {
		s = &memoryStream{followers: make(map[chan []byte]struct{})}
		b.streams[streamID] = s
	}
	return s
}

// cleanupLoop drops finished streams once their retention window ends.
func (b *MemoryBackend) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-streamRetention)
			b.mu.Lock()
			for id, s := range b.streams {
				if s.done && s.doneAt.Before(cutoff) {
					delete(b.streams, id)
				}
			}
			b.mu.Unlock()
		}
	}
}
