package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"go-rental-ws/internal/model"
)

// Producer publishes order events keyed by order code, so every event for
// one order lands on the same partition in commit order.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logrus.Logger
}

// NewProducer dials the brokers, retrying a few times while Kafka starts up.
func NewProducer(brokers []string, topic string, log *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= 5; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.WithField("topic", topic).Info("Kafka producer initialized")
			return NewWithProducer(producer, topic, log), nil
		}
		log.WithError(err).Warnf("Waiting for Kafka... (%d/5)", i)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("start kafka producer: %w", err)
}

// NewWithProducer wraps an existing sarama producer.
func NewWithProducer(producer sarama.SyncProducer, topic string, log *logrus.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, log: log}
}

func (p *Producer) Publish(ctx context.Context, event model.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderCode),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"topic":      p.topic,
		"order_code": event.OrderCode,
		"type":       event.Type,
		"partition":  partition,
		"offset":     offset,
	}).Debug("order event published")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
