package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"braidsbar/queue-service/internal/models"

	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:   "ticket.created",
		Branch: models.BranchMadina,
		Ticket: models.Ticket{
			TicketID:    "t1",
			QueueNumber: "MAD-001",
			Branch:      models.BranchMadina,
			Status:      models.StatusWaiting,
		},
		OccurredAt: time.Date(2026, time.October, 12, 9, 30, 0, 0, time.UTC),
	}
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("down")}
	multi := Multi{failing, nil, ok}

	err := multi.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)
}

type fakeRedis struct {
	channel string
	message interface{}
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewRedisPublisher(client, "")

	require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, DefaultRedisChannel, client.channel)

	body, ok := client.message.([]byte)
	require.True(t, ok)
	var decoded Event
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "MAD-001", decoded.Ticket.QueueNumber)

	client.err = errors.New("connection refused")
	err := publisher.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "redis publish")
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	publisher := &AMQPPublisher{ch: ch, exchange: DefaultAMQPExchange}

	require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, DefaultAMQPExchange, ch.exchange)
	assert.Equal(t, "ticket.created", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Contains(t, string(ch.msg.Body), `"queue_number":"MAD-001"`)
}
