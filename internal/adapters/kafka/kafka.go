package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "wish-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// WishEvent is the record shape downstream consumers (analytics, feeds)
// read off the wish topic.
type WishEvent struct {
	Action    string `json:"action"` // created, updated, deleted, interaction
	WishID    uint   `json:"wishId"`
	UserID    uint   `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// EventPublisher writes wish lifecycle events to a Kafka topic, keyed by
// wish id so one wish's history stays ordered within a partition.
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventPublisher(producer sarama.SyncProducer, topic string) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *EventPublisher) Publish(action string, wishID, userID uint) error {
	event := WishEvent{
		Action:    action,
		WishID:    wishID,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal wish event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", wishID)),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish wish event: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}
