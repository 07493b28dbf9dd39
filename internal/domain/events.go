package domain

import "time"

// StageMessage is what a kiosk publishes after a stage is completed.
// Either OrderNumber or QRContent identifies the order; the stage fields
// sit next to them at the top level.
type StageMessage struct {
	OrderNumber string `json:"order_number,omitempty"`
	QRContent   string `json:"qr_content,omitempty"`
	WorkerCode  string `json:"worker_code,omitempty"`
	ProcessRecord
}

const (
	NotifyStageRecorded   = "stage.recorded"
	NotifyOrderRegistered = "order.registered"
	NotifyOrderDeleted    = "order.deleted"
)

// Notification is fanned out to every subscriber of the notifications exchange.
type Notification struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number"`
	Process     Kind      `json:"process,omitempty"`
	Machine     string    `json:"machine,omitempty"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
