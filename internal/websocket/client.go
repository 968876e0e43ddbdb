package websocket

import (
	"sync"
	"time"

	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 256

// Client is one board viewer. Viewers only receive; anything they send is
// read and dropped so control frames keep flowing.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	board          Board
	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	// greeting is written before anything queued on Send.
	greeting []byte

	mu        sync.Mutex
	closeOnce sync.Once
}

// Greet sets the first message the viewer receives. It must be called before
// WritePump starts; events queued meanwhile follow it.
func (c *Client) Greet(data []byte) {
	c.greeting = data
}

func NewClient(conn *websocket.Conn, board Board, cfg config.WebSocketConfig) *Client {
	c := &Client{
		ID:             uuid.NewString(),
		Conn:           conn,
		Send:           make(chan []byte, sendBufferSize),
		board:          board,
		writeWait:      time.Duration(cfg.WriteWaitSeconds) * time.Second,
		pongWait:       time.Duration(cfg.PongWaitSeconds) * time.Second,
		maxMessageSize: int64(cfg.MaxMessageSize),
	}
	if c.writeWait <= 0 {
		c.writeWait = 10 * time.Second
	}
	if c.pongWait <= 0 {
		c.pongWait = 60 * time.Second
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = 512
	}
	return c
}

func (c *Client) pingPeriod() time.Duration {
	return (c.pongWait * 9) / 10
}

// Queue hands data to the write pump without blocking. It reports false when
// the send buffer is full. Only the owning board may call it once the client
// is registered.
func (c *Client) Queue(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *Client) ReadPump() {
	defer func() {
		c.board.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected board client close", zap.String("clientID", c.ID), zap.Error(err))
			} else {
				logger.L.Debug("Board client read ended", zap.String("clientID", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	if c.greeting != nil {
		c.mu.Lock()
		c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
		err := c.Conn.WriteMessage(websocket.TextMessage, c.greeting)
		c.mu.Unlock()
		if err != nil {
			logger.L.Warn("Failed to greet board client", zap.String("clientID", c.ID), zap.Error(err))
			return
		}
	}

	for {
		select {
		case data, ok := <-c.Send:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, data)
			if err == nil {
				// drain whatever queued up meanwhile
				for n := len(c.Send); n > 0 && err == nil; n-- {
					next, ok := <-c.Send
					if !ok {
						break
					}
					err = c.Conn.WriteMessage(websocket.TextMessage, next)
				}
			}
			c.mu.Unlock()
			if err != nil {
				logger.L.Warn("Failed to write to board client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				logger.L.Debug("Failed to ping board client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
