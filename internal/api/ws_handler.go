package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	internalws "guild-loot/internal/websocket"
	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// snapshot is the first message a board viewer receives.
type snapshot struct {
	Kind   string      `json:"kind"`
	Queues []queueJSON `json:"queues"`
}

type WSHandler struct {
	board    internalws.Board
	reader   QueueReader
	wsConfig config.WebSocketConfig
}

func NewWSHandler(board internalws.Board, reader QueueReader, wsConfig config.WebSocketConfig) *WSHandler {
	return &WSHandler{board: board, reader: reader, wsConfig: wsConfig}
}

// HandleConnection upgrades to a read-only live board: a snapshot of every
// queue followed by one JSON event per committed change. The viewer is
// registered before the snapshot is read, so no committed change is missed;
// a change committed while the snapshot is read may show up in both.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := internalws.NewClient(conn, h.board, h.wsConfig)
	h.board.Register(client)

	data, err := h.snapshot(c.Request.Context())
	if err != nil {
		logger.L.Error("Failed to build board snapshot", zap.String("clientID", client.ID), zap.Error(err))
		h.board.Unregister(client)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to load queues"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	client.Greet(data)
	logger.L.Info("Board viewer connected", zap.String("clientID", client.ID), zap.String("ip", c.ClientIP()))

	go client.WritePump()
	go client.ReadPump()
}

func (h *WSHandler) snapshot(ctx context.Context) ([]byte, error) {
	queues, err := collectQueues(h.reader.ListAll(ctx))
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshot{Kind: "snapshot", Queues: queues})
}
