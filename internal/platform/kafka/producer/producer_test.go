package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/platform/config"
)

func TestNewRequiresBrokers(t *testing.T) {
	for _, brokers := range []string{"", " , "} {
		_, err := New(config.KafkaConfig{Brokers: brokers}, nil)
		require.Error(t, err, "brokers %q", brokers)
	}
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092,,b:9092 "))
}

func TestToRecordCopiesHeaders(t *testing.T) {
	r := toRecord(&Message{
		Topic:   "roster.users",
		Key:     []byte("42"),
		Value:   []byte("{}"),
		Headers: map[string]string{"event_type": "user.updated"},
	})
	assert.Equal(t, "roster.users", r.Topic)
	assert.Equal(t, []byte("42"), r.Key)
	require.Len(t, r.Headers, 1)
	assert.Equal(t, "event_type", r.Headers[0].Key)
	assert.Equal(t, []byte("user.updated"), r.Headers[0].Value)
}

func TestClosedProducerRejectsWrites(t *testing.T) {
	p, err := New(config.KafkaConfig{Brokers: "127.0.0.1:1", Topic: "roster.users"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "roster.users", p.Topic())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.ProduceAsync(&Message{Value: []byte("x")}), errClosed)
	assert.ErrorIs(t, p.Produce(context.Background(), &Message{Value: []byte("x")}), errClosed)
	assert.ErrorIs(t, p.Health(context.Background()), errClosed)
}
