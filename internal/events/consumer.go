// Package events consumes RFQ lifecycle records published by the other
// platform services and feeds them into the domain event bridge.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"quotedesk/backend/internal/models"
)

// Notifier is the bridge surface the consumer drives.
type Notifier interface {
	RFQUpdated(rfqID string, payload map[string]any)
	QuoteSubmitted(rfqID string, payload map[string]any)
}

type Consumer struct {
	reader   *kafkago.Reader
	notifier Notifier
	log      *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, n Notifier, log *zap.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, notifier: n, log: log}
}

// Start blocks consuming the topic until ctx is cancelled. Undecodable or
// unknown records are logged and skipped; the chat channel is best-effort
// from the publisher's point of view.
func (c *Consumer) Start(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			c.log.Warn("kafka read error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		c.dispatch(m.Value)
	}
}

func (c *Consumer) dispatch(value []byte) {
	var env models.RFQEventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		c.log.Warn("undecodable rfq event record", zap.Error(err))
		return
	}
	if env.RFQID == "" {
		c.log.Warn("rfq event record without rfq_id")
		return
	}

	switch env.Type {
	case "rfq_updated":
		c.notifier.RFQUpdated(env.RFQID, env.Payload)
	case "quote_submitted":
		c.notifier.QuoteSubmitted(env.RFQID, env.Payload)
	default:
		c.log.Warn("unknown rfq event type", zap.String("type", env.Type))
	}
}

func (c *Consumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
