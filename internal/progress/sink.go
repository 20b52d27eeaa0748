package progress

import "context"

// Sink consumes batches of outcome events. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// verifier and scanner stay agnostic about buffering and flushing.
type Emitter interface {
	Emit(evt Event)
}
