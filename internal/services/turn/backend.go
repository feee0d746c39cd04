// File: internal/services/turn/backend.go
package turn

import (
	"context"
	"errors"
	"time"
)

// Frame retention window for finished streams. Reattachment after this
// window yields not-found; the conversation itself is already
// persisted by then.
const streamRetention = time.Hour

// doneMarker is the sentinel entry a backend stores after the last
// frame of a stream. It is never handed to consumers.
const doneMarker = "\x00:done"

var ErrStreamGone = errors.New("stream not found in backend")

// Backend is the durable side of the resumable publisher: an ordered,
// append-only frame log per stream id, with live fan-out for attached
// followers. Implementations must preserve append order and keep
// closed streams readable for the retention window.
type Backend interface {
	// Append stores one encoded frame at the tail of the stream and
	// delivers it to live followers.
	Append(ctx context.Context, streamID string, frame []byte) error

	// Close marks the stream finished.
	Close(ctx context.Context, streamID string) error

	// Replay returns all frames stored so far and whether the stream
	// is already finished.
	Replay(ctx context.Context, streamID string) ([][]byte, bool, error)

	// Follow returns a channel of live frames. The channel is closed
	// when the stream finishes; the returned func detaches early.
	// Frames delivered here may overlap with a prior Replay; consumers
	// dedupe by sequence number.
	Follow(ctx context.Context, streamID string) (<-chan []byte, func(), error)
}
