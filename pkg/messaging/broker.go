package messaging

import "context"

// Broker publishes engine events to external subscribers. Publishing is
// fire-and-forget; callers log and drop failures rather than retry.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}
