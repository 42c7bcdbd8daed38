package http

import (
	"context"
	"log/slog"
	"net/http"

	"chat-relay/subscriptions"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// SubscriptionHandler upgrades clients to a websocket and streams the
// room's created-message events to them. One goroutine per connection
// stays parked on the bus channel; closing the socket cancels it and
// releases the bus registration.
type SubscriptionHandler struct {
	subs     *subscriptions.Service
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSubscriptionHandler(log *slog.Logger, subs *subscriptions.Service) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs: subs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

func (h *SubscriptionHandler) Stream(c echo.Context) error {
	room, err := roomParam(c)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed")
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	payloads, err := h.subs.Listen(ctx, room)
	if err != nil {
		h.log.Error("Subscription failed", "room_id", room, "error", err)
		return nil
	}

	// Read pump: the client sends nothing meaningful, but reading is the
	// only way to observe its close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Client disconnected", "room_id", room)
			return nil
		case payload, ok := <-payloads:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.log.Debug("Write to client failed, closing stream",
					"room_id", room, "error", err)
				return nil
			}
		}
	}
}
