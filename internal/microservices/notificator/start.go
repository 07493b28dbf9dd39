package notificator

import (
	"context"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/notificator/service"
)

func Start(ctx context.Context, sub service.Subscriber, lg *logger.Logger) error {
	lg.Info("service_started", nil)
	return service.New(sub, lg).NotificatorService.Notify(ctx)
}
