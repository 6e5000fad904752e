package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaDispatcher publishes confirmations to a topic consumed by the mail
// worker. Delivery past the broker is someone else's problem; checkout only
// needs a bounded, fire-and-forget publish.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

// NewKafkaDispatcher builds a dispatcher over the given brokers (CSV) and
// topic. Returns nil when no brokers are configured.
func NewKafkaDispatcher(brokersCSV, topic string) *KafkaDispatcher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (d *KafkaDispatcher) Notify(ctx context.Context, c Confirmation) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(c.OrderID, 10)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
