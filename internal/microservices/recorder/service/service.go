package service

import (
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/recorder/repository"
	shared "production-tracker/internal/repository"
)

type Service struct {
	RecorderService RecorderServiceInterface
}

func New(orders shared.Orders, repo repository.RecorderRepositoryInterface, broker Broker, lg *logger.Logger, consumer string, prefetch int) *Service {
	return &Service{
		RecorderService: NewRecorderService(orders, repo, broker, lg, consumer, prefetch),
	}
}
