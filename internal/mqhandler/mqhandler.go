package mqhandler

import "context"

// Deduper guards against duplicate deliveries of the same message.
// Implemented by util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, messageID string) bool
	Release(ctx context.Context, handler string, messageID string)
}

// Publisher fans out events after a snapshot is written. Implemented by
// mq.Producer.
type Publisher interface {
	Publish(routingKey string, payload any) error
}
