package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"guild-loot/internal/metrics"
	"guild-loot/internal/model"
	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"go.uber.org/zap"
)

var ErrBoardFull = errors.New("board broadcast channel is full")

// Hub is the in-process board. A single Run goroutine owns the client set.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64

	retryCount    int
	retryInterval time.Duration
}

func NewHub(wsConfig config.WebSocketConfig) *Hub {
	retryCount := wsConfig.MessageRetryCount
	if retryCount <= 0 {
		retryCount = 3
		logger.L.Warn("Invalid retryCount, using default", zap.Int("default", retryCount))
	}

	retryInterval := time.Duration(wsConfig.MessageRetryIntervalMs) * time.Millisecond
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
		logger.L.Warn("Invalid retryInterval, using default", zap.Duration("default", retryInterval))
	}

	broadcastBufferSize := wsConfig.BroadcastBufferSize
	if broadcastBufferSize <= 0 {
		broadcastBufferSize = 256
		logger.L.Warn("Invalid BroadcastBufferSize, using default", zap.Int("default", broadcastBufferSize))
	}

	return &Hub{
		clients:       make(map[string]*Client),
		broadcast:     make(chan []byte, broadcastBufferSize),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		retryCount:    retryCount,
		retryInterval: retryInterval,
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent queues the event for every connected viewer. It never blocks.
func (h *Hub) BroadcastEvent(event *model.QueueEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal queue event: %w", err)
	}
	select {
	case h.broadcast <- data:
		logger.L.Debug("Queue event queued for broadcast", zap.String("kind", string(event.Kind)))
		return nil
	default:
		logger.L.Warn("Hub broadcast channel full, dropping event", zap.String("kind", string(event.Kind)))
		return ErrBoardFull
	}
}

func (h *Hub) Start(ctx context.Context) {
	go h.Run(ctx)
}

// Close is a no-op; the hub stops when the context given to Run is done.
func (h *Hub) Close() error {
	return nil
}

func (h *Hub) remove(client *Client) {
	if registered, ok := h.clients[client.ID]; ok && registered == client {
		delete(h.clients, client.ID)
		h.count.Add(-1)
		metrics.BoardClients.Dec()
		client.close()
	}
}

func (h *Hub) trySendMessage(client *Client, data []byte) {
	if client.Queue(data) {
		return
	}
	for i := 0; i < h.retryCount; i++ {
		logger.L.Warn("Client send buffer full, retry attempt",
			zap.String("clientID", client.ID),
			zap.Int("attempt", i+1))
		timer := time.NewTimer(h.retryInterval)
		select {
		case client.Send <- data:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	logger.L.Error("Client send buffer still full after retries, closing connection",
		zap.String("clientID", client.ID),
		zap.Int("attempts", h.retryCount))
	h.remove(client)
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, client := range h.clients {
			h.remove(client)
		}
		logger.L.Info("Board hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client.ID] = client
			h.count.Add(1)
			metrics.BoardClients.Inc()
			logger.L.Info("Board client registered", zap.String("clientID", client.ID))

		case client := <-h.unregister:
			h.remove(client)
			logger.L.Info("Board client unregistered", zap.String("clientID", client.ID))

		case data := <-h.broadcast:
			for _, client := range h.clients {
				h.trySendMessage(client, data)
			}
		}
	}
}
