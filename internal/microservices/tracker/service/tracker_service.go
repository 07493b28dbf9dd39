package service

import (
	"context"

	"github.com/pkg/errors"

	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/domain"
	"production-tracker/internal/microservices/tracker/repository"
	shared "production-tracker/internal/repository"
	"production-tracker/internal/status"
)

type TrackerServiceInterface interface {
	Search(ctx context.Context, c domain.SearchCriteria) ([]domain.SalesOrder, error)
	SearchList(ctx context.Context, input string) ([]domain.SalesOrder, error)
	Status(ctx context.Context, orderNo string) (domain.OrderStatus, error)
	Lookup(ctx context.Context, qr string) (domain.SalesOrder, error)
	Render(ctx context.Context, st domain.OrderStatus, manager bool) []status.Block
}

type TrackerService struct {
	orders      shared.Orders
	repo        repository.TrackerRepoInterface
	log         *logger.Logger
	placeholder string
}

func NewTrackerService(orders shared.Orders, repo repository.TrackerRepoInterface, lg *logger.Logger, placeholder string) *TrackerService {
	return &TrackerService{orders: orders, repo: repo, log: lg, placeholder: placeholder}
}

func (s *TrackerService) Search(ctx context.Context, c domain.SearchCriteria) ([]domain.SalesOrder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return s.orders.Search(ctx, c)
}

func (s *TrackerService) SearchList(ctx context.Context, input string) ([]domain.SalesOrder, error) {
	nos, err := domain.ParseOrderList(input)
	if err != nil {
		return nil, err
	}
	return s.orders.ByNumbers(ctx, nos)
}

// Status loads every stage recorded for orderNo.
func (s *TrackerService) Status(ctx context.Context, orderNo string) (domain.OrderStatus, error) {
	o, err := s.orders.ByNumber(ctx, orderNo)
	if err != nil {
		return domain.OrderStatus{}, err
	}
	recs, err := s.repo.Records(ctx, o.ID)
	if err != nil {
		return domain.OrderStatus{}, err
	}
	return domain.OrderStatus{OrderNumber: o.OrderNo, Process: recs}, nil
}

// Lookup resolves a scanned order card. Deleted orders are reported as
// missing so the kiosk refuses to record against them.
func (s *TrackerService) Lookup(ctx context.Context, qr string) (domain.SalesOrder, error) {
	orderNo, err := domain.ParseQRContent(qr)
	if err != nil {
		return domain.SalesOrder{}, err
	}
	o, err := s.orders.ByNumber(ctx, orderNo)
	if err != nil {
		return domain.SalesOrder{}, err
	}
	if !o.Active() {
		return domain.SalesOrder{}, errors.Wrap(domain.ErrNotFound, orderNo)
	}
	return o, nil
}

// Render builds the status view blocks and logs every record it had to
// skip or degrade.
func (s *TrackerService) Render(ctx context.Context, st domain.OrderStatus, manager bool) []status.Block {
	res := status.Render(st, status.Options{ViewerIsManager: manager, Placeholder: s.placeholder})

	lg := httpx.LoggerFrom(ctx, s.log)
	for _, is := range res.Issues {
		lg.Warn("status_record_"+string(is.Type), map[string]any{
			"order_no": st.OrderNumber,
			"index":    is.Index,
			"process":  string(is.Kind),
			"detail":   is.Detail,
		})
	}
	lg.Debug("status_rendered", map[string]any{
		"order_no": st.OrderNumber,
		"records":  len(st.Process),
		"blocks":   len(res.Blocks),
		"skipped":  len(res.Skipped()),
		"manager":  manager,
	})
	return res.Blocks
}
