package tracker

import (
	"context"
	"strconv"

	"production-tracker/internal/common/config"
	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/tracker/handler"
	"production-tracker/internal/microservices/tracker/repository"
	"production-tracker/internal/microservices/tracker/service"
	shared "production-tracker/internal/repository"
)

// Start serves the tracking API until ctx is done.
func Start(ctx context.Context, cfg config.App, db shared.DBTX, lg *logger.Logger) error {
	svc := service.NewService(shared.NewOrdersPG(db), repository.NewTrackerRepo(db), lg, cfg.Render.Placeholder)
	h := handler.New(svc.TrackerService, lg, cfg.Render.ManagerGroup)

	addr := ":" + strconv.Itoa(cfg.HTTP.TrackingPort)
	lg.Info("service_started", map[string]any{"port": cfg.HTTP.TrackingPort, "manager_group": cfg.Render.ManagerGroup})
	return httpx.New(addr, httpx.WithRequestLog(lg, handler.Router(h))).Run(ctx)
}
