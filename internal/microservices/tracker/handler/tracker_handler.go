package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"production-tracker/internal/common/httpx"
	"production-tracker/internal/common/logger"
	"production-tracker/internal/domain"
	"production-tracker/internal/microservices/tracker/models"
	"production-tracker/internal/microservices/tracker/service"
	"production-tracker/internal/status"
)

// GroupsHeader carries the viewer's groups, comma separated, as set by the gateway.
const GroupsHeader = "X-User-Groups"

const maxRenderBody = 1 << 20

type TrackerHandler struct {
	service      service.TrackerServiceInterface
	log          *logger.Logger
	managerGroup string
}

func NewTrackerHandler(svc service.TrackerServiceInterface, lg *logger.Logger, managerGroup string) *TrackerHandler {
	return &TrackerHandler{service: svc, log: lg, managerGroup: managerGroup}
}

func (h *TrackerHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := domain.SearchCriteria{
		OrderNo:   q.Get("order_no"),
		Item:      q.Get("item"),
		ColorCode: q.Get("color_code"),
		Pattern:   q.Get("pattern"),
		Customer:  q.Get("customer"),
		OrderType: q.Get("order_type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Limit:     httpx.AtoiDefault(q.Get("limit"), 100),
		Offset:    httpx.AtoiDefault(q.Get("offset"), 0),
	}
	orders, err := h.service.Search(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.SearchResponse{Orders: nonNil(orders)})
}

func (h *TrackerHandler) SearchList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.SearchList(r.Context(), r.URL.Query().Get("order_nos"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.SearchResponse{Orders: nonNil(orders)})
}

func (h *TrackerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context(), param(r, "order_no"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *TrackerHandler) ViewStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context(), param(r, "order_no"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeView(w, r, st)
}

// RenderStatus renders a posted OrderStatus without touching the database.
func (h *TrackerHandler) RenderStatus(w http.ResponseWriter, r *http.Request) {
	var st domain.OrderStatus
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenderBody)).Decode(&st); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	h.writeView(w, r, st)
}

func (h *TrackerHandler) KioskLookup(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Lookup(r.Context(), r.URL.Query().Get("qr"))
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, models.LookupResponse{
			Status:           models.LookupSuccess,
			OrderNumber:      o.OrderNo,
			OrderInformation: &o,
		})
	case errors.Is(err, domain.ErrInvalidQR):
		httpx.WriteJSON(w, http.StatusBadRequest, models.LookupResponse{Status: models.LookupFail, Message: "Invalid QR content"})
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, models.LookupResponse{Status: models.LookupFail, Message: "Order not found"})
	default:
		h.fail(w, r, err)
	}
}

func (h *TrackerHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TrackerHandler) writeView(w http.ResponseWriter, r *http.Request, st domain.OrderStatus) {
	blocks := h.service.Render(r.Context(), st, h.isManager(r))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := status.WriteHTML(w, blocks); err != nil {
		httpx.LoggerFrom(r.Context(), h.log).Error("status_view_write_failed", err, map[string]any{"order_no": st.OrderNumber})
	}
}

func (h *TrackerHandler) isManager(r *http.Request) bool {
	if h.managerGroup == "" {
		return false
	}
	for _, g := range strings.Split(r.Header.Get(GroupsHeader), ",") {
		if strings.EqualFold(strings.TrimSpace(g), h.managerGroup) {
			return true
		}
	}
	return false
}

// fail maps service errors to problem responses.
func (h *TrackerHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, domain.ErrInvalidQR):
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_qr", err.Error())
	default:
		httpx.LoggerFrom(r.Context(), h.log).Error("db_query_failed", err, map[string]any{"path": r.URL.Path})
		httpx.WriteProblem(w, http.StatusInternalServerError, "db_error", "internal error")
	}
}

func param(r *http.Request, key string) string {
	return strings.TrimSpace(r.PathValue(key))
}

func nonNil(orders []domain.SalesOrder) []domain.SalesOrder {
	if orders == nil {
		return []domain.SalesOrder{}
	}
	return orders
}
