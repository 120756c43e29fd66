package redis

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/watch"
)

// Watch subscribes to the namespace event channel and forwards changes of key.
// A key ending with "/" or the watch.WithPrefix option matches by prefix.
// Events are dropped, not queued, when the consumer falls behind.
func (d *Driver) Watch(ctx context.Context, key []byte, opts ...watch.Option) (<-chan watch.Event, func(), error) {
	options := watch.Apply(opts...)
	prefix := options.Prefix || operation.IsPrefix(key)

	watchCtx, cancel := context.WithCancel(ctx)
	sub := d.client.Subscribe(watchCtx, d.eventsChannel())

	if _, err := sub.Receive(watchCtx); err != nil {
		cancel()
		_ = sub.Close()

		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events := make(chan watch.Event, options.BufferSize)
	messages := sub.Channel()

	go func() {
		defer close(events)
		defer func() { _ = sub.Close() }()

		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				changed := []byte(msg.Payload)
				if !bytes.Equal(changed, key) && !(prefix && bytes.HasPrefix(changed, key)) {
					continue
				}

				select {
				case events <- watch.Event{Prefix: key}:
				default:
					d.logger.Debug("watch event dropped", zap.ByteString("key", key))
				}
			}
		}
	}()

	return events, cancel, nil
}
