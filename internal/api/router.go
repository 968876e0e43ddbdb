package api

import (
	"context"

	"guild-loot/internal/command"
	"guild-loot/internal/middleware"
	internalws "guild-loot/internal/websocket"
	"guild-loot/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Reader     QueueReader
	Dispatcher *command.Dispatcher
	Board      internalws.Board
	Ping       func(ctx context.Context) error
	JWTSecret  string
	WebSocket  config.WebSocketConfig
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.GinZapLogger(), middleware.Metrics())

	health := NewHealthHandler(deps.Ping, deps.Board)
	r.GET("/", health.Root)
	r.HEAD("/", health.Root)
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	queues := NewQueueHandler(deps.Reader)
	commands := NewCommandHandler(deps.Dispatcher)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/items", queues.ListItems)
		apiGroup.GET("/items/:name", queues.GetItem)
		apiGroup.GET("/members", queues.ListMembers)
		apiGroup.GET("/members/:external_id/loot", queues.GetMemberLoot)
		apiGroup.GET("/commands", commands.ListCommands)

		protected := apiGroup.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTSecret))
		protected.POST("/commands", commands.Execute)
	}

	if deps.Board != nil {
		r.GET("/ws", NewWSHandler(deps.Board, deps.Reader, deps.WebSocket).HandleConnection)
	}
	return r
}
