package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind names a manufacturing process stage.
type Kind string

const (
	KindDryPlan    Kind = "DryPlan"
	KindDryMix     Kind = "DryMix"
	KindDryLine    Kind = "DryLine"
	KindRP         Kind = "RP"
	KindInspection Kind = "Inspection"
	KindPrinting   Kind = "Printing"
)

// Pipeline lists the stages in production order.
var Pipeline = []Kind{KindDryPlan, KindDryMix, KindDryLine, KindRP, KindInspection, KindPrinting}

// UnmarshalJSON accepts any JSON value. A non-string kind keeps its raw
// text so it is reported and skipped like any other unknown kind.
func (k *Kind) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*k = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = Kind(s)
	default:
		*k = Kind(b)
	}
	return nil
}

func (k Kind) Known() bool {
	for _, p := range Pipeline {
		if k == p {
			return true
		}
	}
	return false
}

// OrderStatus is the per-order payload behind the status view.
// Records appear in the order the stages were recorded.
type OrderStatus struct {
	OrderNumber string          `json:"order_number,omitempty"`
	Process     []ProcessRecord `json:"process"`
}

// ProcessRecord is one recorded stage. Only the fields of its kind are
// meaningful; the rest stay empty.
type ProcessRecord struct {
	Process    Kind  `json:"process"`
	CreateDate Value `json:"create_date,omitzero"`
	Machine    Value `json:"machine,omitzero"`

	// DryPlan
	PlanDate    Value `json:"plan_date,omitzero"`
	PlanQty     Value `json:"plan_qty,omitzero"`
	SkinResin   Value `json:"skin_resin,omitzero"`
	BinderResin Value `json:"binder_resin,omitzero"`
	Base        Value `json:"base,omitzero"`

	// DryMix
	Chemical Chemicals `json:"chemical,omitempty"`

	PdQty     Value `json:"pd_qty,omitzero"`     // DryLine
	DelamiQty Value `json:"delami_qty,omitzero"` // RP
	AgradeQty Value `json:"agrade_qty,omitzero"` // Inspection
	PrintQty  Value `json:"print_qty,omitzero"`  // Printing
}

var ErrBadTimestamp = errors.New("unrecognized timestamp")

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp reads a create_date as written by the kiosks and by
// Postgres text output. A missing zone is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10] + " " + s[11:]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrBadTimestamp, "%q", s)
}
