package service

import "production-tracker/internal/common/logger"

type Service struct {
	NotificatorService *NotificatorService
}

func New(sub Subscriber, lg *logger.Logger) *Service {
	return &Service{NotificatorService: NewNotificatorService(sub, lg)}
}
