package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
	closed   bool
}

func (c *recordingChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange, c.key = exchange, key
	c.msgs = append(c.msgs, msg)
	return c.err
}

func (c *recordingChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	ch := &recordingChannel{}
	p := NewPublisherWithChannel(ch, "saferoads", "escalation")

	err := p.Publish(context.Background(), map[string]int{"damage_score": 91})

	require.NoError(t, err)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "saferoads", ch.exchange)
	assert.Equal(t, "escalation", ch.key)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msgs[0].DeliveryMode)

	var body map[string]int
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &body))
	assert.Equal(t, 91, body["damage_score"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishErrors(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	p := NewPublisherWithChannel(ch, "x", "k")
	assert.Error(t, p.Publish(context.Background(), "event"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewPublisherWithChannel(&recordingChannel{}, "x", "k").Publish(ctx, "event"), context.Canceled)

	assert.Error(t, p.Publish(context.Background(), make(chan int)))
}
