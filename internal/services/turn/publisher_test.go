// File: internal/services/turn/publisher_test.go
package turn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend captures every Append in arrival order.
type recordingBackend struct {
	mu     sync.Mutex
	frames map[string][][]byte
	closed map[string]bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		frames: make(map[string][][]byte),
		closed: make(map[string]bool),
	}
}

func (b *recordingBackend) Append(ctx context.Context, streamID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[streamID] = append(b.frames[streamID], frame)
	return nil
}

func (b *recordingBackend) Close(ctx context.Context, streamID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed[streamID] = true
	return nil
}

func (b *recordingBackend) Replay(ctx context.Context, streamID string) ([][]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames, ok := b.frames[streamID]
	if !ok {
		return nil, false, ErrStreamGone
	}
	out := make([][]byte, len(frames))
	copy(out, frames)
	return out, b.closed[streamID], nil
}

func (b *recordingBackend) Follow(ctx context.Context, streamID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	close(ch)
	return ch, func() {}, nil
}

func (b *recordingBackend) framesFor(streamID string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.frames[streamID]))
	copy(out, b.frames[streamID])
	return out
}

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, open := <-ch:
			if !open {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining event channel")
		}
	}
}

func TestStream_EventsReplayInOrder(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	s := p.Open()

	s.Emit(Event{Type: EventTextDelta, Delta: "a"})
	s.Emit(Event{Type: EventTextDelta, Delta: "b"})
	s.Emit(Event{Type: EventFinish})
	s.Close()

	events := collectEvents(t, s.Events(context.Background()))
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Delta)
	assert.Equal(t, "b", events[1].Delta)
	assert.Equal(t, EventFinish, events[2].Type)

	// Sequence numbers are contiguous from 1.
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestStream_LateConsumerSeesEverything(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	s := p.Open()

	s.Emit(Event{Type: EventTextDelta, Delta: "early"})

	ch := s.Events(context.Background())

	s.Emit(Event{Type: EventTextDelta, Delta: "late"})
	s.Close()

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].Delta)
	assert.Equal(t, "late", events[1].Delta)
}

func TestStream_EmitAfterCloseIsDropped(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	s := p.Open()
	s.Emit(Event{Type: EventTextDelta, Delta: "a"})
	s.Close()
	s.Emit(Event{Type: EventTextDelta, Delta: "dropped"})

	events := collectEvents(t, s.Events(context.Background()))
	require.Len(t, events, 1)
}

func TestPublisher_AttachLiveStream(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	s := p.Open()
	s.Emit(Event{Type: EventTextDelta, Delta: "a"})

	ch, err := p.Attach(context.Background(), s.ID)
	require.NoError(t, err)

	s.Emit(Event{Type: EventTextDelta, Delta: "b"})
	s.Close()

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Delta)
	assert.Equal(t, "b", events[1].Delta)
}

func TestPublisher_AttachWithoutBackendIsNotResumable(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	assert.False(t, p.Resumable())

	_, err := p.Attach(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestPublisher_AttachThroughBackendAfterRelease(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Stop()
	p := NewPublisher(backend, testLogger())
	require.True(t, p.Resumable())

	s := p.Open()
	streamID := s.ID
	s.Emit(Event{Type: EventTextDelta, Delta: "a"})
	s.Emit(Event{Type: EventTextDelta, Delta: "b"})
	s.Emit(Event{Type: EventFinish})
	s.Close()

	// The stream is released from the live registry; attach must go
	// through the backend replay.
	ch, err := p.Attach(context.Background(), streamID)
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Delta)
	assert.Equal(t, "b", events[1].Delta)
	assert.Equal(t, EventFinish, events[2].Type)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestPublisher_AttachUnknownStreamThroughBackend(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Stop()
	p := NewPublisher(backend, testLogger())

	_, err := p.Attach(context.Background(), "never-existed")
	assert.ErrorIs(t, err, ErrStreamGone)
}

func TestPublisher_BackendFollowerSeesLiveFrames(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Stop()
	p := NewPublisher(backend, testLogger())

	producer := p.Open()
	producer.Emit(Event{Type: EventTextDelta, Delta: "a"})

	// A second publisher simulates another process attached to the same
	// backend: it has no live registry entry for the stream.
	other := NewPublisher(backend, testLogger())
	ch, err := other.Attach(context.Background(), producer.ID)
	require.NoError(t, err)

	producer.Emit(Event{Type: EventTextDelta, Delta: "b"})
	producer.Close()

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Delta)
	assert.Equal(t, "b", events[1].Delta)
}

func TestStream_ConcurrentEmittersMirrorInSeqOrder(t *testing.T) {
	backend := newRecordingBackend()
	p := NewPublisher(backend, testLogger())
	s := p.Open()

	// Several goroutines emit on one stream, the way the generation
	// loop and the title side-task do.
	const emitters = 4
	const perEmitter = 50
	var wg sync.WaitGroup
	for i := 0; i < emitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perEmitter; j++ {
				s.Emit(Event{Type: EventTextDelta, Delta: "x"})
			}
		}()
	}
	wg.Wait()
	s.Close()

	frames := backend.framesFor(s.ID)
	require.Len(t, frames, emitters*perEmitter)
	for i, frame := range frames {
		ev, err := decodeFrame(frame)
		require.NoError(t, err)
		// Any inversion here would make a reattached follower's seq
		// dedupe drop the lower frame permanently.
		require.Equal(t, int64(i+1), ev.Seq)
	}
	assert.True(t, backend.closed[s.ID])
}

func TestPublisher_ConsumerContextCancelStops(t *testing.T) {
	p := NewPublisher(nil, testLogger())
	s := p.Open()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Events(ctx)
	cancel()

	select {
	case _, open := <-ch:
		if open {
			// One buffered frame may slip through; the channel must
			// still close promptly.
			_, open = <-ch
			assert.False(t, open)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer channel did not close after cancel")
	}
}
