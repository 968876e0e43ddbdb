package websocket

import (
	"fmt"

	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"go.uber.org/zap"
)

// CreateHub builds the board for the configured messaging provider.
func CreateHub(messaging config.MessagingConfig, wsConfig config.WebSocketConfig) (Board, error) {
	provider := messaging.Provider
	logger.L.Info("Creating board hub", zap.String("provider", provider))

	switch provider {
	case "", "channel":
		return NewHub(wsConfig), nil
	case "kafka":
		return NewKafkaHub(messaging.Kafka)
	default:
		return nil, fmt.Errorf("unsupported messaging provider %q", provider)
	}
}
