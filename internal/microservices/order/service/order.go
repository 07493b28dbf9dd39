package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
	"production-tracker/internal/domain"
	shared "production-tracker/internal/repository"
)

const StatusRegistered = "registered"

type Publisher interface {
	Publish(ctx context.Context, exchange, key, correlationID string, body []byte) error
}

type OrderServiceInterface interface {
	Register(ctx context.Context, req domain.RegisterOrderRequest) (domain.RegisterOrderResponse, error)
	Delete(ctx context.Context, orderNo string) error
}

type OrderService struct {
	orders shared.Orders
	pub    Publisher
	log    *logger.Logger
	now    func() time.Time
}

func NewOrderService(orders shared.Orders, pub Publisher, lg *logger.Logger) *OrderService {
	return &OrderService{orders: orders, pub: pub, log: lg, now: time.Now}
}

func (s *OrderService) Register(ctx context.Context, req domain.RegisterOrderRequest) (domain.RegisterOrderResponse, error) {
	o, err := req.SalesOrder(s.now())
	if err != nil {
		return domain.RegisterOrderResponse{}, err
	}
	if o, err = s.orders.Create(ctx, o); err != nil {
		return domain.RegisterOrderResponse{}, err
	}

	lg := httpx.LoggerFrom(ctx, s.log)
	lg.Info("order_registered", map[string]any{"order_no": o.OrderNo, "production": domain.IsProductionOrder(o.OrderNo)})
	s.notify(ctx, lg, domain.NotifyOrderRegistered, o.OrderNo)

	return domain.RegisterOrderResponse{OrderNo: o.OrderNo, Status: StatusRegistered}, nil
}

// Delete marks the order deleted. Its stage records stay for the history.
func (s *OrderService) Delete(ctx context.Context, orderNo string) error {
	if orderNo == "" {
		return errors.Wrap(domain.ErrNotFound, "empty order number")
	}
	if err := s.orders.MarkDeleted(ctx, orderNo); err != nil {
		return err
	}

	lg := httpx.LoggerFrom(ctx, s.log)
	lg.Info("order_deleted", map[string]any{"order_no": orderNo})
	s.notify(ctx, lg, domain.NotifyOrderDeleted, orderNo)
	return nil
}

// notify is best effort; the order change is already committed.
func (s *OrderService) notify(ctx context.Context, lg *logger.Logger, typ, orderNo string) {
	body, err := json.Marshal(domain.Notification{
		Type:        typ,
		OrderNumber: orderNo,
		ChangedBy:   lg.Service(),
		Timestamp:   s.now().UTC(),
	})
	if err == nil {
		err = s.pub.Publish(ctx, mq.ExchangeNotifications, "", orderNo, body)
	}
	if err != nil {
		lg.Error("notification_publish_failed", err, map[string]any{"order_no": orderNo, "type": typ})
	}
}
