package service

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
)

type fakeSubscriber struct {
	ch       chan amqp.Delivery
	once     sync.Once
	exchange string
}

func (f *fakeSubscriber) Subscribe(exchange, _ string) (<-chan amqp.Delivery, error) {
	f.exchange = exchange
	return f.ch, nil
}

func (f *fakeSubscriber) Cancel(string) error {
	f.once.Do(func() { close(f.ch) })
	return nil
}

func TestNotifyStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := &fakeSubscriber{ch: make(chan amqp.Delivery, 2)}
	sub.ch <- amqp.Delivery{Body: []byte(`{"type":"stage.recorded","order_number":"SOV2403001-1","process":"RP"}`)}
	sub.ch <- amqp.Delivery{Body: []byte(`garbage`)}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewNotificatorService(sub, logger.New("notification-test")).Notify(ctx) }()

	require.Eventually(t, func() bool { return len(sub.ch) == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Notify did not return")
	}
	assert.Equal(t, mq.ExchangeNotifications, sub.exchange)
}

func TestNotifyReportsClosedChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := &fakeSubscriber{ch: make(chan amqp.Delivery)}
	close(sub.ch)
	assert.Error(t, NewNotificatorService(sub, logger.New("notification-test")).Notify(context.Background()))
}
