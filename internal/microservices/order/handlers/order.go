package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/domain"
	"production-tracker/internal/microservices/order/service"
)

const maxOrderBody = 64 << 10

type OrderHandler struct {
	service service.OrderServiceInterface
	log     *logger.Logger
}

func NewOrderHandler(s service.OrderServiceInterface, lg *logger.Logger) *OrderHandler {
	return &OrderHandler{service: s, log: lg}
}

func (oh *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(&req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
		return
	}

	resp, err := oh.service.Register(r.Context(), req)
	if err != nil {
		oh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (oh *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := oh.service.Delete(r.Context(), strings.TrimSpace(r.PathValue("order_no"))); err != nil {
		oh.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (oh *OrderHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, domain.ErrDuplicate):
		httpx.WriteProblem(w, http.StatusConflict, "duplicate_order", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", "order not found")
	default:
		httpx.LoggerFrom(r.Context(), oh.log).Error("order_write_failed", err, map[string]any{"path": r.URL.Path})
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", "internal error")
	}
}
