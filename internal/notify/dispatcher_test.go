package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LogDispatcher_Notify(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(slog.New(slog.NewTextHandler(&buf, nil)))

	err := d.Notify(context.Background(), Confirmation{
		OrderID:        42,
		RecipientEmail: "j.mitchell@af.mil",
		Items:          []Line{{SKU: "F35", Quantity: 1, UnitPrice: 250_000_000}},
		Total:          250_000_000,
		PlacedAt:       time.Now().UTC(),
	})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "order confirmation")
	assert.Contains(t, out, "order_id=42")
	assert.Contains(t, out, "j.mitchell@af.mil")
}

func Test_NewKafkaDispatcher_NoBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaDispatcher("", "order-confirmations"))
	assert.Nil(t, NewKafkaDispatcher(" , ,", "order-confirmations"))
}

func Test_NewKafkaDispatcher_ParsesBrokerList(t *testing.T) {
	d := NewKafkaDispatcher("broker-1:9092, broker-2:9092", "order-confirmations")
	require.NotNil(t, d)
	t.Cleanup(func() { _ = d.Close() })
}
