package service

import (
	"production-tracker/internal/common/logger"
	shared "production-tracker/internal/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(orders shared.Orders, pub Publisher, lg *logger.Logger) *Service {
	return &Service{
		OrderService: NewOrderService(orders, pub, lg),
	}
}
