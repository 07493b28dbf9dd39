package handler

import "net/http"

func Router(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tracking/orders", h.TrackerHandler.Search)
	mux.HandleFunc("GET /api/v1/tracking/orders/list", h.TrackerHandler.SearchList)
	mux.HandleFunc("GET /api/v1/tracking/orders/{order_no}/status", h.TrackerHandler.GetStatus)
	mux.HandleFunc("GET /api/v1/tracking/orders/{order_no}/status/view", h.TrackerHandler.ViewStatus)
	mux.HandleFunc("GET /api/v1/tracking/kiosk/lookup", h.TrackerHandler.KioskLookup)
	mux.HandleFunc("POST /api/v1/tracking/status/render", h.TrackerHandler.RenderStatus)
	mux.HandleFunc("GET /healthz", h.TrackerHandler.Healthz)
	return mux
}
