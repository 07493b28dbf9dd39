package handlers

import (
	"net/http"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/order/service"
)

type Handler struct {
	OrderHandler *OrderHandler
}

func New(s *service.Service, lg *logger.Logger) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService, lg),
	}
}

func Router(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/orders", h.OrderHandler.AddOrder)
	mux.HandleFunc("DELETE /api/v1/orders/{order_no}", h.OrderHandler.DeleteOrder)
	return mux
}
