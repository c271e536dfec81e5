package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topics: []string{"t"}}, nil, nil)
	require.Error(t, err)

	_, err = New(Config{Brokers: "localhost:9092"}, nil, nil)
	require.Error(t, err)
}

func TestToMessage(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     "roster.users",
		Partition: 2,
		Offset:    17,
		Key:       []byte("42"),
		Value:     []byte("{}"),
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte("pass.completed")}},
		Timestamp: ts,
	})
	assert.Equal(t, "roster.users", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(17), msg.Offset)
	assert.Equal(t, "pass.completed", msg.Headers["event_type"])
	assert.Equal(t, ts, msg.Timestamp)
}
