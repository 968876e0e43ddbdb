package api

import (
	"net/http"

	"guild-loot/internal/command"
	"guild-loot/internal/middleware"
	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommandRequest struct {
	Command string            `json:"command" binding:"required"`
	Args    map[string]string `json:"args"`
}

type CommandHandler struct {
	dispatcher *command.Dispatcher
}

func NewCommandHandler(dispatcher *command.Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// Execute runs a chat command on behalf of the token's member and returns the
// rendered pages.
func (h *CommandHandler) Execute(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.L.Warn("Failed to bind command request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	inv := command.Invocation{
		Command:     req.Command,
		CallerID:    c.GetString(middleware.KeyExternalID),
		CallerName:  c.GetString(middleware.KeyCallerName),
		CallerAdmin: c.GetBool(middleware.KeyCallerAdmin),
		Args:        req.Args,
	}
	if inv.CallerName == "" {
		inv.CallerName = inv.CallerID
	}

	resp := h.dispatcher.Execute(c.Request.Context(), inv)
	body := gin.H{"pages": resp.Pages, "ephemeral": resp.Ephemeral}
	if resp.Err != nil {
		logger.L.Debug("Command rejected", zap.String("command", inv.Command), zap.String("callerID", inv.CallerID), zap.Error(resp.Err))
	}
	c.JSON(statusFor(resp.Err), body)
}

// ListCommands returns the command table.
func (h *CommandHandler) ListCommands(c *gin.Context) {
	out := make([]gin.H, 0, len(command.Commands))
	for _, def := range command.Commands {
		options := make([]gin.H, 0, len(def.Options))
		for _, o := range def.Options {
			options = append(options, gin.H{"name": o.Name, "description": o.Description, "required": o.Required})
		}
		out = append(out, gin.H{
			"name":        def.Name,
			"description": def.Description,
			"admin":       def.Admin,
			"options":     options,
		})
	}
	c.JSON(http.StatusOK, gin.H{"commands": out})
}
