package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes a published payload for a routing key.
type Handler func(ctx context.Context, routingKey string, payload []byte)

// InProcessBus delivers events synchronously to registered handlers.
// It replaces RabbitMQ in local mode.
type InProcessBus struct {
	logger   *slog.Logger
	mu       sync.Mutex
	handlers []Handler
}

// NewInProcessBus creates a new in-process event bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{logger: logger}
}

// Subscribe registers a handler for all published events.
func (b *InProcessBus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish dispatches the payload to every registered handler.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, routingKey, payload)
	}

	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"handlers", len(handlers),
	)
	return nil
}

// Close is a no-op for the in-process bus.
func (b *InProcessBus) Close() error {
	return nil
}
