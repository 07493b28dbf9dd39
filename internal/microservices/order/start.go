package order

import (
	"context"
	"strconv"

	"production-tracker/internal/common/config"
	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/order/handlers"
	"production-tracker/internal/microservices/order/service"
	shared "production-tracker/internal/repository"
)

// Run serves the order API until ctx is done.
func Run(ctx context.Context, cfg config.HTTP, db shared.DBTX, pub service.Publisher, lg *logger.Logger) error {
	svc := service.New(shared.NewOrdersPG(db), pub, lg)
	h := handlers.New(svc, lg)

	lg.Info("service_started", map[string]any{"port": cfg.OrderPort, "max_concurrent": cfg.MaxConcurrent})
	mux := handlers.Router(h)
	return httpx.New(":"+strconv.Itoa(cfg.OrderPort),
		httpx.WithRequestLog(lg, httpx.WithConcurrencyLimit(cfg.MaxConcurrent, mux))).Run(ctx)
}
