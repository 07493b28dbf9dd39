package recorder

import (
	"context"

	"production-tracker/internal/common/config"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/recorder/repository"
	"production-tracker/internal/microservices/recorder/service"
	shared "production-tracker/internal/repository"
)

// Run consumes stage records until ctx is done.
func Run(ctx context.Context, cfg config.Recorder, db shared.DBTX, broker service.Broker, lg *logger.Logger) error {
	svc := service.New(shared.NewOrdersPG(db), repository.NewRecorderRepository(db), broker, lg, cfg.Consumer, cfg.Prefetch)
	return svc.RecorderService.Run(ctx)
}
