package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type RegisterOrderRequest struct {
	OrderID      string `json:"order_id"`
	SeqNo        int    `json:"seq_no"`
	CustomerName string `json:"customer_name"`
	OrderType    string `json:"order_type"`
	OrderDate    string `json:"order_date"` // YYYY-MM-DD
	Brand        string `json:"brand"`
	ItemName     string `json:"item_name"`
	ColorCode    string `json:"color_code"`
	Pattern      string `json:"pattern"`
	Spec         string `json:"spec"`
	OrderQty     int    `json:"order_qty"`
	QtyUnit      string `json:"qty_unit"`
}

type RegisterOrderResponse struct {
	OrderNo string `json:"order_no"`
	Status  string `json:"status"`
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

const (
	DateLayout     = "2006-01-02"
	MaxSearchRange = 60 * 24 * time.Hour
	minOrderNoLen  = 6
)

// SearchCriteria is the order search form.
type SearchCriteria struct {
	OrderNo   string
	Item      string
	ColorCode string
	Pattern   string
	Customer  string
	OrderType string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int

	// From and To are set by Validate when a date range was given.
	// To is exclusive (the day after EndDate).
	From, To time.Time
}

// Validate trims the criteria and applies the search form rules. The first
// violated rule is returned.
func (c *SearchCriteria) Validate() error {
	for _, f := range []*string{&c.OrderNo, &c.Item, &c.ColorCode, &c.Pattern, &c.Customer, &c.OrderType, &c.StartDate, &c.EndDate} {
		*f = strings.TrimSpace(*f)
	}
	if c.OrderNo == "" && c.Item == "" && c.ColorCode == "" && c.Pattern == "" &&
		c.Customer == "" && c.OrderType == "" && c.StartDate == "" && c.EndDate == "" {
		return invalid("criteria", "enter at least one search criteria")
	}

	minLen := []struct {
		field, value string
		min          int
	}{
		{"order_no", c.OrderNo, minOrderNoLen},
		{"item", c.Item, 4},
		{"color_code", c.ColorCode, 3},
		{"pattern", c.Pattern, 2},
		{"customer", c.Customer, 2},
	}
	for _, m := range minLen {
		if n := utf8.RuneCountInString(m.value); n > 0 && n < m.min {
			return invalid(m.field, "must be at least "+strconv.Itoa(m.min)+" characters long")
		}
	}

	if (c.StartDate == "") != (c.EndDate == "") {
		return invalid("date", "enter both start_date and end_date")
	}
	if c.StartDate != "" {
		from, err := time.Parse(DateLayout, c.StartDate)
		if err != nil {
			return invalid("start_date", "expected YYYY-MM-DD")
		}
		to, err := time.Parse(DateLayout, c.EndDate)
		if err != nil {
			return invalid("end_date", "expected YYYY-MM-DD")
		}
		if to.Before(from) {
			return invalid("date", "end_date is before start_date")
		}
		if to.Sub(from) > MaxSearchRange {
			return invalid("date", "date range cannot exceed 60 days")
		}
		c.From, c.To = from, to.AddDate(0, 0, 1)
	}

	if c.Limit <= 0 || c.Limit > 500 {
		c.Limit = 100
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	return nil
}

// ParseOrderList turns the pasted order list into order numbers. Lines may
// be separated by newlines or commas; a tab inside a line (a spreadsheet
// paste of order id and sequence) becomes '-'.
func ParseOrderList(input string) ([]string, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == '\n' || r == ',' || r == '\r' })
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		no := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(f), "\t", "-"))
		if no == "" || seen[no] {
			continue
		}
		if utf8.RuneCountInString(no) < minOrderNoLen {
			return nil, invalid("order_nos", "order number "+no+" must be at least 6 characters long")
		}
		seen[no] = true
		out = append(out, no)
	}
	if len(out) == 0 {
		return nil, invalid("order_nos", "enter at least one order number")
	}
	return out, nil
}

const defaultQtyUnit = "M"

// SalesOrder checks the registration form and builds the order to store.
// An empty order_date means today.
func (r RegisterOrderRequest) SalesOrder(today time.Time) (SalesOrder, error) {
	for _, f := range []*string{&r.OrderID, &r.CustomerName, &r.OrderType, &r.OrderDate, &r.Brand,
		&r.ItemName, &r.ColorCode, &r.Pattern, &r.Spec, &r.QtyUnit} {
		*f = strings.TrimSpace(*f)
	}

	required := []struct{ field, value string }{
		{"order_id", r.OrderID},
		{"customer_name", r.CustomerName},
		{"order_type", r.OrderType},
		{"item_name", r.ItemName},
		{"color_code", r.ColorCode},
	}
	for _, f := range required {
		if f.value == "" {
			return SalesOrder{}, invalid(f.field, "is required")
		}
	}
	if strings.ContainsAny(r.OrderID, "-!") {
		return SalesOrder{}, invalid("order_id", "must not contain '-' or '!'")
	}
	if r.SeqNo <= 0 {
		return SalesOrder{}, invalid("seq_no", "must be positive")
	}
	if r.OrderQty < 0 {
		return SalesOrder{}, invalid("order_qty", "must not be negative")
	}

	orderDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if r.OrderDate != "" {
		d, err := time.Parse(DateLayout, r.OrderDate)
		if err != nil {
			return SalesOrder{}, invalid("order_date", "expected YYYY-MM-DD")
		}
		orderDate = d
	}
	if r.QtyUnit == "" {
		r.QtyUnit = defaultQtyUnit
	}

	no := OrderNumber(r.OrderID, r.SeqNo)
	if utf8.RuneCountInString(no) < minOrderNoLen {
		return SalesOrder{}, invalid("order_id", "order number "+no+" is too short")
	}
	return SalesOrder{
		OrderNo:      no,
		OrderID:      r.OrderID,
		SeqNo:        r.SeqNo,
		CustomerName: r.CustomerName,
		OrderType:    r.OrderType,
		OrderDate:    orderDate,
		Brand:        r.Brand,
		ItemName:     r.ItemName,
		ColorCode:    r.ColorCode,
		Pattern:      r.Pattern,
		Spec:         r.Spec,
		OrderQty:     r.OrderQty,
		QtyUnit:      r.QtyUnit,
	}, nil
}
