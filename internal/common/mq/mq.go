package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"production-tracker/internal/common/config"
)

const (
	ExchangeProduction    = "production_topic"
	ExchangeNotifications = "notifications_fanout"
	ExchangeDeadLetter    = "dlx"

	QueueStageRecords = "stage_records"
	QueueDeadLetter   = "dlq"

	// StageKeyPattern binds the stage queue; kiosks publish on stage.<Kind>.
	StageKeyPattern = "stage.*"
)

// StageKey is the routing key a kiosk uses for a stage record.
func StageKey(kind string) string { return "stage." + kind }

type Client struct {
	conn *amqp.Connection
	pub  *amqp.Channel
	cons *amqp.Channel

	acks <-chan amqp.Confirmation // publisher confirms
	mu   sync.Mutex               // serializes Publish while waiting for a confirm
}

func Dial(cfg config.MQ) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	scheme := "amqp"
	if cfg.TLS {
		scheme = "amqps"
	}
	u := fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme,
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Pass), cfg.Host, cfg.Port, url.PathEscape(vhost))

	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.TLS {
		conn, err = amqp.DialTLS(u, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(u)
	}
	if err != nil {
		return nil, err
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := pub.Confirm(false); err != nil {
		_ = pub.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := pub.NotifyPublish(make(chan amqp.Confirmation, 1))

	cons, err := conn.Channel()
	if err != nil {
		_ = pub.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Client{conn: conn, pub: pub, cons: cons, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.cons != nil {
		_ = c.cons.Close()
	}
	if c.pub != nil {
		_ = c.pub.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareAll declares the exchanges and queues of the plant topology.
// Declarations are idempotent.
func (c *Client) DeclareAll() error {
	ch := c.cons
	if err := ch.ExchangeDeclare(ExchangeProduction, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeNotifications, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeDeadLetter, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(QueueStageRecords, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": QueueDeadLetter,
	}); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(QueueDeadLetter, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(QueueStageRecords, StageKeyPattern, ExchangeProduction, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(QueueDeadLetter, QueueDeadLetter, ExchangeDeadLetter, false, nil)
}

// Publish sends a persistent JSON message and waits for the broker's confirm.
func (c *Client) Publish(ctx context.Context, exchange, key, correlationID string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pub.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume starts a manual-ack consumer on queue.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.cons.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.cons.Consume(queue, consumer, false, false, false, false, nil)
}

// Subscribe binds a private, auto-deleted queue to a fanout exchange and
// consumes it with auto-ack.
func (c *Client) Subscribe(exchange, consumer string) (<-chan amqp.Delivery, error) {
	q, err := c.cons.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := c.cons.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, err
	}
	return c.cons.Consume(q.Name, consumer, true, true, false, false, nil)
}

// Cancel stops delivering to consumer; in-flight deliveries stay valid.
func (c *Client) Cancel(consumer string) error {
	return c.cons.Cancel(consumer, false)
}
