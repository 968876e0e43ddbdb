package websocket

import (
	"context"

	"guild-loot/internal/model"
)

// Board fans committed queue events out to live board viewers.
type Board interface {
	Register(client *Client)
	Unregister(client *Client)
	BroadcastEvent(event *model.QueueEvent) error
	ClientCount() int
	Start(ctx context.Context)
	Close() error
}
