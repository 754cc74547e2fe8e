package service

import (
	"context"
	"sync"

	"arborlead_backend/internal/events"
)

// recordingBus captures published events synchronously for assertions.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func newRecordingBus() *recordingBus {
	return &recordingBus{}
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, event := range b.published {
		out = append(out, event.EventName())
	}
	return out
}
