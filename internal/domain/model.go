package domain

import (
	"strconv"
	"time"
)

// SalesOrder is an order registered from the ERP sheet.
type SalesOrder struct {
	ID           int64     `json:"-"`
	OrderNo      string    `json:"order_no"` // <order_id>-<seq_no>
	OrderID      string    `json:"order_id"`
	SeqNo        int       `json:"seq_no"`
	CustomerName string    `json:"customer_name"`
	OrderType    string    `json:"order_type"`
	OrderDate    time.Time `json:"order_date"`
	Brand        string    `json:"brand,omitempty"`
	ItemName     string    `json:"item_name"`
	ColorCode    string    `json:"color_code"`
	Pattern      string    `json:"pattern"`
	Spec         string    `json:"spec,omitempty"`
	OrderQty     int       `json:"order_qty"`
	QtyUnit      string    `json:"qty_unit,omitempty"`
	Status       *bool     `json:"status"` // nil registered, true shipped, false deleted
	CreatedAt    time.Time `json:"create_date"`
}

// Active reports whether the order can still receive stage records.
func (o SalesOrder) Active() bool { return o.Status == nil || *o.Status }

// OrderNumber builds the public order number from its ERP parts.
func OrderNumber(orderID string, seqNo int) string {
	return orderID + "-" + strconv.Itoa(seqNo)
}
