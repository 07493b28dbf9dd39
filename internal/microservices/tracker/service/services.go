package service

import (
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/tracker/repository"
	shared "production-tracker/internal/repository"
)

type Service struct {
	TrackerService TrackerServiceInterface
}

func NewService(orders shared.Orders, repo repository.TrackerRepoInterface, lg *logger.Logger, placeholder string) *Service {
	return &Service{TrackerService: NewTrackerService(orders, repo, lg, placeholder)}
}
