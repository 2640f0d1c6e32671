package notify

import "context"

// Sink delivers a formatted notification to a destination. Delivery is
// at-most-once: implementations do not retry.
type Sink interface {
	Send(ctx context.Context, destination string, msg Message) error
}
