//go:generate go run go.uber.org/mock/mockgen -source=bus.go -destination=../mocks/mock_bus.go -package=mocks
package bus

import (
	"context"
	"log/slog"

	"chat-relay/observability"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Publisher is the write side of the notification bus. Publish is
// fire-and-forget: with no registered subscriber the payload is dropped,
// and a subscriber error never surfaces to the publisher.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber is the read side. The returned channel yields payloads in
// publish order (FIFO per topic per subscriber) until ctx is cancelled,
// after which it is closed and the registration released.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// Bus is an in-process topic pub/sub built on watermill's GoChannel.
//
// Each subscription drains the broker channel into an unbounded in-memory
// queue, so a slow or non-consuming subscriber never delays delivery to
// subscribers of other topics (or of the same topic). The buffering policy
// is: unbounded until process memory pressure, acceptable for the
// at-most-one-process scope of this bus.
type Bus struct {
	channel *gochannel.GoChannel
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewBus(log *slog.Logger, metrics *observability.Metrics) *Bus {
	return &Bus{
		channel: gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false)),
		log:     log,
		metrics: metrics,
	}
}

func (b *Bus) Publish(topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.channel.Publish(topic, msg); err != nil {
		return err
	}
	b.metrics.MessagesPublished.Inc()
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	messages, err := b.channel.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte)
	b.metrics.ActiveSubscribers.Inc()

	go func() {
		defer close(out)
		defer b.metrics.ActiveSubscribers.Dec()

		// Ack immediately and queue locally: the broker is released as soon
		// as the payload is accepted, keeping per-subscriber consumption
		// speed out of the publish path.
		var queue [][]byte
		in := messages
		for in != nil || len(queue) > 0 {
			var sendCh chan<- []byte
			var head []byte
			if len(queue) > 0 {
				sendCh = out
				head = queue[0]
			}
			select {
			case msg, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				msg.Ack()
				queue = append(queue, msg.Payload)
			case sendCh <- head:
				queue = queue[1:]
			case <-ctx.Done():
				b.log.Debug("Subscription cancelled", "topic", topic, "undelivered", len(queue))
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.channel.Close()
}
