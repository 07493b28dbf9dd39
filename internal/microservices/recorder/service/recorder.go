package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
	"production-tracker/internal/domain"
	"production-tracker/internal/microservices/recorder/repository"
	shared "production-tracker/internal/repository"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// Broker is the part of mq.Client the recorder needs.
type Broker interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
	Cancel(consumer string) error
	Publish(ctx context.Context, exchange, key, correlationID string, body []byte) error
}

type RecorderServiceInterface interface {
	Run(ctx context.Context) error
}

type RecorderService struct {
	orders shared.Orders
	repo   repository.RecorderRepositoryInterface
	broker Broker
	log    *logger.Logger

	Queue    string
	Consumer string
	Prefetch int
	// Timeout bounds the handling of one delivery, including during drain.
	Timeout time.Duration
	// DrainTimeout bounds the wait for received deliveries after cancel.
	DrainTimeout time.Duration

	now func() time.Time
}

func NewRecorderService(orders shared.Orders, repo repository.RecorderRepositoryInterface, broker Broker, lg *logger.Logger, consumer string, prefetch int) *RecorderService {
	if prefetch <= 0 {
		prefetch = 1
	}
	if strings.TrimSpace(consumer) == "" {
		consumer = "stage-recorder"
	}
	return &RecorderService{
		orders:       orders,
		repo:         repo,
		broker:       broker,
		log:          lg,
		Queue:        mq.QueueStageRecords,
		Consumer:     consumer,
		Prefetch:     prefetch,
		Timeout:      10 * time.Second,
		DrainTimeout: 30 * time.Second,
		now:          time.Now,
	}
}

// Run consumes stage records until ctx is done, then stops the consumer and
// waits for the deliveries already received.
func (s *RecorderService) Run(ctx context.Context) error {
	msgs, err := s.broker.Consume(s.Queue, s.Consumer, s.Prefetch)
	if err != nil {
		return errors.Wrapf(err, "consume %s", s.Queue)
	}
	s.log.Info("consumer_started", map[string]any{"queue": s.Queue, "consumer": s.Consumer, "prefetch": s.Prefetch})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			s.settle(d, s.handle(ctx, d))
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
		return errors.New("delivery channel closed by broker")
	}

	s.log.Info("graceful_shutdown", map[string]any{"consumer": s.Consumer})
	if err := s.broker.Cancel(s.Consumer); err != nil {
		s.log.Warn("consumer_cancel_failed", map[string]any{"consumer": s.Consumer, "error": err.Error()})
	}

	timer := time.NewTimer(s.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		s.log.Warn("drain_timeout", map[string]any{"consumer": s.Consumer, "waited": s.DrainTimeout.String()})
		return errors.Errorf("consumer %s did not drain within %s", s.Consumer, s.DrainTimeout)
	}
}

func (s *RecorderService) handle(ctx context.Context, d amqp.Delivery) error {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()
	return s.processOne(hctx, d.Body)
}

func (s *RecorderService) settle(d amqp.Delivery, err error) {
	fields := map[string]any{"message_id": d.MessageId, "routing_key": d.RoutingKey}
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDLQ):
		s.log.Warn("stage_record_rejected", withErr(fields, err))
		_ = d.Nack(false, false)
	default:
		s.log.Error("stage_record_retry", err, fields)
		_ = d.Nack(false, true)
	}
}

func (s *RecorderService) processOne(ctx context.Context, body []byte) error {
	var msg domain.StageMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return errors.Wrap(ErrDLQ, "decode body: "+err.Error())
	}
	rec := msg.ProcessRecord
	if !rec.Process.Known() {
		return errors.Wrapf(ErrDLQ, "unknown stage kind %q", rec.Process)
	}

	orderNo, err := s.orderNumber(msg)
	if err != nil {
		return err
	}

	order, err := s.orders.ByNumber(ctx, orderNo)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errors.Wrapf(ErrDLQ, "order %s is not registered", orderNo)
	case err != nil:
		return errors.Wrap(ErrRequeue, err.Error())
	case !order.Active():
		return errors.Wrapf(ErrDLQ, "order %s is deleted", orderNo)
	}

	at := s.now().UTC()
	if !rec.CreateDate.Missing() {
		if at, err = domain.ParseTimestamp(rec.CreateDate.String()); err != nil {
			return errors.Wrap(ErrDLQ, err.Error())
		}
	}

	id, err := s.repo.InsertRecord(ctx, order.ID, msg.WorkerCode, rec, at)
	if err != nil {
		return errors.Wrap(ErrRequeue, err.Error())
	}
	s.log.Debug("stage_recorded", map[string]any{
		"order_no": orderNo, "process": string(rec.Process), "machine": rec.Machine.String(), "record_id": id,
	})

	// The record is stored; a lost notification must not cause a duplicate.
	if err := s.publishRecorded(ctx, orderNo, rec, msg.WorkerCode); err != nil {
		s.log.Error("notification_publish_failed", err, map[string]any{"order_no": orderNo})
	}
	return nil
}

func (s *RecorderService) orderNumber(msg domain.StageMessage) (string, error) {
	if no := strings.TrimSpace(msg.OrderNumber); no != "" {
		return no, nil
	}
	if strings.TrimSpace(msg.QRContent) == "" {
		return "", errors.Wrap(ErrDLQ, "message has neither order_number nor qr_content")
	}
	no, err := domain.ParseQRContent(msg.QRContent)
	if err != nil {
		return "", errors.Wrap(ErrDLQ, err.Error())
	}
	return no, nil
}

func (s *RecorderService) publishRecorded(ctx context.Context, orderNo string, rec domain.ProcessRecord, worker string) error {
	body, err := json.Marshal(domain.Notification{
		Type:        domain.NotifyStageRecorded,
		OrderNumber: orderNo,
		Process:     rec.Process,
		Machine:     rec.Machine.String(),
		ChangedBy:   worker,
		Timestamp:   s.now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, mq.ExchangeNotifications, "", orderNo, body)
}

func withErr(fields map[string]any, err error) map[string]any {
	fields["error"] = err.Error()
	return fields
}
