package service

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
	"production-tracker/internal/domain"
)

type Subscriber interface {
	Subscribe(exchange, consumer string) (<-chan amqp.Delivery, error)
	Cancel(consumer string) error
}

type NotificatorService struct {
	sub      Subscriber
	log      *logger.Logger
	consumer string
}

func NewNotificatorService(sub Subscriber, lg *logger.Logger) *NotificatorService {
	return &NotificatorService{sub: sub, log: lg, consumer: "notificator"}
}

// Notify logs every notification fanned out until ctx is done.
func (ns *NotificatorService) Notify(ctx context.Context) error {
	msgs, err := ns.sub.Subscribe(mq.ExchangeNotifications, ns.consumer)
	if err != nil {
		return errors.Wrap(err, "subscribe notifications")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			ns.handle(d)
		}
	}()

	select {
	case <-ctx.Done():
		_ = ns.sub.Cancel(ns.consumer)
		<-done
		return nil
	case <-done:
		return errors.New("notification channel closed by broker")
	}
}

func (ns *NotificatorService) handle(d amqp.Delivery) {
	var n domain.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		ns.log.Warn("notification_undecodable", map[string]any{"message_id": d.MessageId, "error": err.Error()})
		return
	}
	ns.log.Info("notification_received", map[string]any{
		"type":       n.Type,
		"order_no":   n.OrderNumber,
		"process":    string(n.Process),
		"machine":    n.Machine,
		"changed_by": n.ChangedBy,
		"at":         n.Timestamp,
	})
}
