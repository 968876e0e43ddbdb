package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"guild-loot/internal/metrics"
	"guild-loot/internal/model"
	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaHub publishes queue events to a topic and relays every event it
// consumes to the viewers connected to this instance, so boards served by
// different instances all see every change.
type KafkaHub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
	topic    string

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

func newSaramaConfig() *sarama.Config {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Consumer.Return.Errors = true
	kConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kConfig.Version = sarama.V2_8_0_0
	return kConfig
}

func NewKafkaHub(cfg config.KafkaConfig) (*KafkaHub, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	kConfig := newSaramaConfig()

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka producer", zap.Error(err))
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}

	// every instance needs every event, so each one joins its own group
	group := cfg.ConsumerGroup + "-" + uuid.NewString()
	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, group, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka consumer group", zap.Error(err))
		producer.Close()
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}

	return newKafkaHub(producer, consumer, cfg.Topic), nil
}

func newKafkaHub(producer sarama.SyncProducer, consumer sarama.ConsumerGroup, topic string) *KafkaHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaHub{
		clients:    make(map[string]*Client),
		producer:   producer,
		consumer:   consumer,
		topic:      topic,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start consumes the event topic until ctx is done or Close is called.
func (h *KafkaHub) Start(ctx context.Context) {
	if h.consumer == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.consumeMessages(ctx)
	}()
}

func (h *KafkaHub) Close() error {
	h.cancelFunc()

	var errs []error
	if h.consumer != nil {
		if err := h.consumer.Close(); err != nil {
			logger.L.Error("Failed to close Kafka consumer group", zap.Error(err))
			errs = append(errs, err)
		}
	}
	h.wg.Wait()
	if err := h.producer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka producer", zap.Error(err))
		errs = append(errs, err)
	}

	h.clientsMu.Lock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
		metrics.BoardClients.Dec()
	}
	h.clientsMu.Unlock()
	return errors.Join(errs...)
}

func (h *KafkaHub) Register(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[client.ID] = client
	metrics.BoardClients.Inc()
	logger.L.Info("Board client registered with KafkaHub", zap.String("clientID", client.ID))
}

func (h *KafkaHub) Unregister(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if registered, ok := h.clients[client.ID]; ok && registered == client {
		client.close()
		delete(h.clients, client.ID)
		metrics.BoardClients.Dec()
		logger.L.Info("Board client unregistered from KafkaHub", zap.String("clientID", client.ID))
	}
}

func (h *KafkaHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent publishes the event keyed by item so events of one item stay
// ordered within a partition.
func (h *KafkaHub) BroadcastEvent(event *model.QueueEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal queue event: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: h.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.ItemID), 10)),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := h.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.L.Error("Failed to send queue event to Kafka", zap.String("kind", string(event.Kind)), zap.Error(err))
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	logger.L.Debug("Queue event sent to Kafka",
		zap.String("kind", string(event.Kind)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// deliver relays an encoded event to every local viewer.
func (h *KafkaHub) deliver(data []byte) {
	var event model.QueueEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.L.Error("Failed to unmarshal queue event", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range h.clients {
		if !client.Queue(data) {
			logger.L.Warn("Board client send buffer full, dropping event",
				zap.String("clientID", client.ID), zap.String("kind", string(event.Kind)))
		}
	}
}

func (h *KafkaHub) consumeMessages(ctx context.Context) {
	handler := &kafkaConsumerHandler{hub: h}
	topics := []string{h.topic}

	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Stopping Kafka consumer")
			return
		case <-h.ctx.Done():
			logger.L.Info("Stopping Kafka consumer")
			return
		default:
			if err := h.consumer.Consume(ctx, topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				logger.L.Error("Kafka consumer error", zap.Error(err))
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
				case <-h.ctx.Done():
				}
			}
		}
	}
}

type kafkaConsumerHandler struct {
	hub *KafkaHub
}

func (h *kafkaConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.hub.deliver(message.Value)
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
