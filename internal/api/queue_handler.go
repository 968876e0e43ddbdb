package api

import (
	"context"
	"iter"
	"net/http"
	"time"

	"guild-loot/internal/model"
	"guild-loot/internal/service"
	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueReader is the read side of the loot service.
type QueueReader interface {
	ListAll(ctx context.Context) iter.Seq2[service.ItemQueue, error]
	ListForItem(ctx context.Context, fragment string) (*service.ItemQueue, error)
	ListForMember(ctx context.Context, externalID string) (*service.MemberLoot, error)
	Roster(ctx context.Context) ([]model.Member, error)
}

type standingJSON struct {
	Rank       int    `json:"rank"`
	MemberID   uint   `json:"member_id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

type queueJSON struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Queue     []standingJSON `json:"queue"`
}

func toQueueJSON(q service.ItemQueue) queueJSON {
	out := queueJSON{ID: q.Item.ID, Name: q.Item.Name, CreatedAt: q.Item.CreatedAt, Queue: make([]standingJSON, 0, len(q.Standings))}
	for _, st := range q.Standings {
		out.Queue = append(out.Queue, standingJSON{
			Rank:       st.Rank,
			MemberID:   st.Member.ID,
			Name:       st.Member.Name,
			ExternalID: st.Member.ExternalID,
		})
	}
	return out
}

// collectQueues drains seq into JSON form.
func collectQueues(seq iter.Seq2[service.ItemQueue, error]) ([]queueJSON, error) {
	queues := make([]queueJSON, 0)
	for q, err := range seq {
		if err != nil {
			return nil, err
		}
		queues = append(queues, toQueueJSON(q))
	}
	return queues, nil
}

type QueueHandler struct {
	reader QueueReader
}

func NewQueueHandler(reader QueueReader) *QueueHandler {
	return &QueueHandler{reader: reader}
}

func (h *QueueHandler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.L.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *QueueHandler) ListItems(c *gin.Context) {
	queues, err := collectQueues(h.reader.ListAll(c.Request.Context()))
	if err != nil {
		h.fail(c, "Failed to list items", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": queues})
}

func (h *QueueHandler) GetItem(c *gin.Context) {
	q, err := h.reader.ListForItem(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "Failed to load item queue", err)
		return
	}
	c.JSON(http.StatusOK, toQueueJSON(*q))
}

func (h *QueueHandler) ListMembers(c *gin.Context) {
	members, err := h.reader.Roster(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list members", err)
		return
	}
	resp := make([]gin.H, 0, len(members))
	for _, m := range members {
		resp = append(resp, gin.H{
			"id":          m.ID,
			"name":        m.Name,
			"external_id": m.ExternalID,
			"role":        m.Role,
			"created_at":  m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": resp})
}

func (h *QueueHandler) GetMemberLoot(c *gin.Context) {
	loot, err := h.reader.ListForMember(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.fail(c, "Failed to load member loot", err)
		return
	}
	standings := make([]gin.H, 0, len(loot.Standings))
	for _, st := range loot.Standings {
		standings = append(standings, gin.H{
			"item_id":   st.Item.ID,
			"item_name": st.Item.Name,
			"rank":      st.Rank,
			"total":     st.Total,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"member": gin.H{
			"id":          loot.Member.ID,
			"name":        loot.Member.Name,
			"external_id": loot.Member.ExternalID,
			"role":        loot.Member.Role,
		},
		"standings": standings,
	})
}
