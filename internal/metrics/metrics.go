package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loot_queue_operations_total",
		Help: "Ranking engine operations by operation and result.",
	}, []string{"operation", "result"})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loot_commands_total",
		Help: "Chat commands handled by command name and result.",
	}, []string{"command", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loot_http_requests_total",
		Help: "HTTP requests by route and status class.",
	}, []string{"route", "status"})

	BoardClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loot_board_clients",
		Help: "Connected live board websocket clients.",
	})
)

// ObserveOperation counts one engine operation. Errors matching one of
// rejected count as "rejected", any other error as "error".
func ObserveOperation(operation string, err error, rejected ...error) {
	QueueOperations.WithLabelValues(operation, result(err, rejected)).Inc()
}

func ObserveCommand(command string, err error, rejected ...error) {
	CommandsTotal.WithLabelValues(command, result(err, rejected)).Inc()
}

func result(err error, rejected []error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range rejected {
		if errors.Is(err, r) {
			return "rejected"
		}
	}
	return "error"
}
