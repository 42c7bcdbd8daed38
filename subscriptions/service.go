package subscriptions

import (
	"context"
	"log/slog"

	"chat-relay/bus"
	"chat-relay/domain"
)

// Service manages per-client room listeners. Each Listen call registers a
// fresh bus subscription: there is no persistence and no replay, so
// events published before the subscription (or between reconnects) are
// not delivered.
type Service struct {
	subscriber bus.Subscriber
	log        *slog.Logger
}

func NewService(log *slog.Logger, subscriber bus.Subscriber) *Service {
	return &Service{subscriber: subscriber, log: log}
}

// Listen registers the caller on the room's topic. The returned channel
// yields raw event payloads in publish order until ctx is cancelled, at
// which point the bus registration is released promptly and the channel
// closed.
func (s *Service) Listen(ctx context.Context, room domain.RoomID) (<-chan []byte, error) {
	topic := domain.TopicForRoom(room)
	payloads, err := s.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Subscription registered", "topic", topic)
	return payloads, nil
}
