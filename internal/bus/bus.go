// Package bus implements the Bus Publisher: at-least-once publish of a
// transaction envelope keyed by signature, over Kafka.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// deliveryTimeout bounds a single publish attempt (spec §4.5).
const deliveryTimeout = 5 * time.Second

// Publisher is the Bus Publisher contract.
type Publisher interface {
	Send(tx models.Transaction) error
	PublishRaw(topic, key string, payload []byte) error
	Close() error
}

// KafkaPublisher is a sarama-backed synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaPublisher dials brokers and returns a ready Publisher.
func NewKafkaPublisher(brokers []string, clientID, topic string, log *logger.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Timeout = deliveryTimeout

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w: %w", errs.ErrBusUnavailable, err)
	}

	log.Info("connected to kafka", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{producer: producer, topic: topic, log: log}, nil
}

// Send publishes tx keyed by its signature to the configured transaction
// topic.
func (p *KafkaPublisher) Send(tx models.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return p.PublishRaw(p.topic, tx.Signature, payload)
}

// PublishRaw is a passthrough publish to an arbitrary topic/key,
// supplementing the distilled Send-only contract with the source
// system's send_raw_message surface.
func (p *KafkaPublisher) PublishRaw(topic, key string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w: %w", topic, errs.ErrBusUnavailable, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
