package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// PublishOrderStatusChanged keys the message by order id so the changes of
// one order stay in one partition, in order.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, event OrderStatusChanged) error {
	if event.Type == "" {
		event.Type = TypeOrderStatusChanged
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		logger.Error("Failed to publish order event", err, map[string]interface{}{
			"order_id": event.OrderID,
			"type":     event.Type,
		})
		return err
	}

	logger.Debug("Order event published", map[string]interface{}{
		"order_id": event.OrderID,
		"to":       event.ToAdminStatus,
	})
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
