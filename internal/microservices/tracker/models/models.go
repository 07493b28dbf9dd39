package models

import "production-tracker/internal/domain"

type SearchResponse struct {
	Orders []domain.SalesOrder `json:"orders"`
}

// LookupResponse is what the kiosk expects after scanning an order card.
type LookupResponse struct {
	Status           string             `json:"status"` // success | fail
	OrderNumber      string             `json:"order_number,omitempty"`
	OrderInformation *domain.SalesOrder `json:"order_information,omitempty"`
	Message          string             `json:"message,omitempty"`
}

const (
	LookupSuccess = "success"
	LookupFail    = "fail"
)
