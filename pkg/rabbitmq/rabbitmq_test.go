package rabbitmq

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu         sync.Mutex
	published  []amqp.Publishing
	keys       []string
	publishErr error
	deliveries chan amqp.Delivery
	closed     bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

// fakeAcker records how each delivery was settled.
type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

func TestPublish_SendsPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, Config{})

	require.NoError(t, c.Publish("order.paid", []byte(`{"order_id":"ORD-1"}`)))

	require.Len(t, ch.published, 1)
	assert.Equal(t, DefaultExchange+"/order.paid", ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(ch.published[0].Body))
}

func TestPublish_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("connection reset")}
	c := newClient(ch, Config{BreakerFailures: 2, BreakerTimeout: time.Hour})

	err := c.Publish("order.paid", nil)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Error(t, c.Publish("order.paid", nil))

	// Broker recovers but the breaker is open and fails fast.
	ch.publishErr = nil
	err = c.Publish("order.paid", nil)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Empty(t, ch.published)
}

func TestPublish_NoChannel(t *testing.T) {
	c := &Client{}
	assert.True(t, errors.Is(c.Publish("order.paid", nil), ErrUnavailable))
	assert.True(t, errors.Is(c.Consume(func(amqp.Delivery) error { return nil }), ErrUnavailable))
}

func TestConsume_AcksAndNacks(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	c := newClient(ch, Config{})
	acker := &fakeAcker{}

	done := make(chan struct{}, 3)
	require.NoError(t, c.Consume(func(msg amqp.Delivery) error {
		defer func() { done <- struct{}{} }()
		if string(msg.Body) == "bad" {
			return errors.New("cannot decode")
		}
		return nil
	}))

	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("good")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("bad")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte("bad"), Redelivered: true}
	for i := 0; i < 3; i++ {
		<-done
	}
	close(ch.deliveries)

	assert.Eventually(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return len(acker.acked)+len(acker.nacked) == 3
	}, time.Second, 5*time.Millisecond)

	acker.mu.Lock()
	defer acker.mu.Unlock()
	assert.Equal(t, []uint64{1}, acker.acked)
	assert.Equal(t, []uint64{2, 3}, acker.nacked)
	assert.Equal(t, []bool{true, false}, acker.requeue)
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, Config{})
	require.NoError(t, c.Close())
	assert.True(t, ch.closed)
}
