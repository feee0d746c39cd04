// File: internal/services/turn/publisher.go
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/calyra-app/calyra/internal/services"
)

var ErrNotResumable = errors.New("resumable streaming is not available")

const backendWriteTimeout = 5 * time.Second

// Publisher turns the internal event sequence of a turn into wire
// frames and makes the stream addressable by id. With a backend
// present a disconnected consumer can reattach and receive every
// already-emitted frame followed by live ones; without one the
// publisher degrades to direct, non-resumable streaming. That
// degradation is logged once and never surfaced to the caller.
type Publisher struct {
	backend Backend
	logger  services.Logger

	mu     sync.Mutex
	active map[string]*Stream

	degradedOnce sync.Once
}

func NewPublisher(backend Backend, logger services.Logger) *Publisher {
	return &Publisher{
		backend: backend,
		logger:  logger,
		active:  make(map[string]*Stream),
	}
}

// Resumable reports whether reattachment is supported.
func (p *Publisher) Resumable() bool {
	return p.backend != nil
}

// Open starts a new stream for one turn and registers it under a
// fresh id.
func (p *Publisher) Open() *Stream {
	if p.backend == nil {
		p.degradedOnce.Do(func() {
			p.logger.Warn("stream backend unavailable, streams will not be resumable")
		})
	}

	s := &Stream{
		ID:        ulid.Make().String(),
		publisher: p,
		notify:    make(chan struct{}),
	}

	p.mu.Lock()
	p.active[s.ID] = s
	p.mu.Unlock()
	return s
}

// Attach connects a consumer to an existing stream: already-emitted
// frames replayed in original order, then live continuation. Works for
// in-process streams directly and through the backend for everything
// else.
func (p *Publisher) Attach(ctx context.Context, streamID string) (<-chan Event, error) {
	p.mu.Lock()
	live, ok := p.active[streamID]
	p.mu.Unlock()
	if ok {
		return live.Events(ctx), nil
	}

	if p.backend == nil {
		return nil, ErrNotResumable
	}

	// Follow before replay so nothing falls in between; overlap is
	// deduped by sequence number.
	followCh, detach, err := p.backend.Follow(ctx, streamID)
	if err != nil {
		if errors.Is(err, ErrStreamGone) {
			return nil, ErrStreamGone
		}
		p.logger.Error("stream follow failed", "stream_id", streamID, "error", err)
		return nil, ErrStreamGone
	}

	frames, done, err := p.backend.Replay(ctx, streamID)
	if err != nil {
		detach()
		return nil, ErrStreamGone
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer detach()

		var lastSeq int64
		for _, frame := range frames {
			ev, decodeErr := decodeFrame(frame)
			if decodeErr != nil {
				continue
			}
			lastSeq = ev.Seq
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if done {
			return
		}

		for frame := range followCh {
			ev, decodeErr := decodeFrame(frame)
			if decodeErr != nil || ev.Seq <= lastSeq {
				continue
			}
			lastSeq = ev.Seq
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Publisher) release(streamID string) {
	p.mu.Lock()
	delete(p.active, streamID)
	p.mu.Unlock()
}

func decodeFrame(frame []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(frame, &ev)
	return ev, err
}

// Stream is the producer side of one turn's event sequence. Emit never
// blocks on consumers: frames accumulate in the local log (and the
// backend) and consumers drain at their own pace.
type Stream struct {
	ID        string
	publisher *Publisher

	// mirrorMu is held across seq assignment and the backend append so
	// frames reach the backend in seq order even with several emitting
	// goroutines; a reattached follower dedupes by seq and would treat
	// an inverted frame as already seen.
	mirrorMu sync.Mutex

	mu          sync.Mutex
	seq         int64
	frames      []Event
	done        bool
	notify      chan struct{}
	backendDown bool
}

// Emit appends one event to the stream. Events emitted after Close are
// dropped.
func (s *Stream) Emit(ev Event) {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.seq++
	ev.Seq = s.seq
	s.frames = append(s.frames, ev)
	close(s.notify)
	s.notify = make(chan struct{})
	backendDown := s.backendDown
	s.mu.Unlock()

	if s.publisher.backend != nil && !backendDown {
		s.mirror(ev)
	}
}

// Close marks the stream finished and releases it from the live
// registry; the backend keeps it readable for the retention window.
func (s *Stream) Close() {
	s.mirrorMu.Lock()
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		s.mirrorMu.Unlock()
		return
	}
	s.done = true
	close(s.notify)
	s.notify = make(chan struct{})
	backendDown := s.backendDown
	s.mu.Unlock()

	if s.publisher.backend != nil && !backendDown {
		ctx, cancel := context.WithTimeout(context.Background(), backendWriteTimeout)
		defer cancel()
		if err := s.publisher.backend.Close(ctx, s.ID); err != nil {
			s.publisher.logger.Error("stream backend close failed", "stream_id", s.ID, "error", err)
		}
	}
	s.mirrorMu.Unlock()
	s.publisher.release(s.ID)
}

// Events returns the frame sequence for one consumer: everything
// emitted so far in original order, then live frames until the stream
// closes or the consumer's context ends.
func (s *Stream) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		next := 0
		for {
			s.mu.Lock()
			pending := make([]Event, len(s.frames)-next)
			copy(pending, s.frames[next:])
			done := s.done
			notify := s.notify
			s.mu.Unlock()

			for _, ev := range pending {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			next += len(pending)

			if done {
				return
			}
			select {
			case <-notify:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// mirror writes one frame to the backend. A backend failure downgrades
// this stream to direct-only; the turn itself is unaffected.
func (s *Stream) mirror(ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendWriteTimeout)
	defer cancel()
	if err := s.publisher.backend.Append(ctx, s.ID, frame); err != nil {
		s.publisher.logger.Error("stream backend append failed, stream no longer resumable",
			"stream_id", s.ID, "error", err)
		s.mu.Lock()
		s.backendDown = true
		s.mu.Unlock()
	}
}
