// Package status renders an order's recorded process stages into the table
// blocks of the status view.
//
// Rendering is a single left-to-right pass over the records. The only state
// carried between records is the time of the last DryMix and DryLine seen,
// which the DryLine (waiting) and RP (aging) blocks measure against.
package status

import (
	"strings"
	"time"

	"production-tracker/internal/domain"
)

const (
	NotApplicable      = "N/A"
	MissingCell        = "-"
	DefaultPlaceholder = "???"

	unitSuffix = " M"
	dateWidth  = len("2006-01-02 15:04")
)

// Header colors group the stages visually.
const (
	colorPlan    = "#FF4500"
	colorMix     = "#FFC107"
	colorLine    = "#5986c9"
	colorInspect = "#3CB371"
	colorPrint   = "#FF8C00"
)

// Options is the per-render context supplied by the caller.
type Options struct {
	// ViewerIsManager shows DryMix formulation quantities. Everyone else
	// sees Placeholder in those cells.
	ViewerIsManager bool
	Placeholder     string
}

type Cell struct {
	Text     string `json:"text"`
	Redacted bool   `json:"redacted,omitempty"`
}

// Block is one stage table: a header row and a single data row.
type Block struct {
	Kind    domain.Kind `json:"process"`
	Color   string      `json:"color"`
	Headers []string    `json:"headers"`
	Cells   []Cell      `json:"cells"`
}

type IssueType string

const (
	IssueMalformedRecord IssueType = "malformed_record"
	IssueUnknownKind     IssueType = "unknown_stage_kind"
	IssueOutOfOrder      IssueType = "out_of_order_timestamp"
	IssueBadTimestamp    IssueType = "bad_timestamp"
)

// Issue is a problem found in the input that was recovered from.
type Issue struct {
	Index  int         `json:"index"`
	Kind   domain.Kind `json:"process"`
	Type   IssueType   `json:"type"`
	Detail string      `json:"detail"`
}

type Result struct {
	Blocks []Block `json:"blocks"`
	Issues []Issue `json:"issues,omitempty"`
}

// Skipped returns the issues of records that produced no block.
func (r Result) Skipped() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Type == IssueUnknownKind {
			out = append(out, is)
		}
	}
	return out
}

// Render builds one block per record of a known kind, in input order.
// It never fails: malformed fields render as "-", unknown kinds are
// skipped, and every such recovery is listed in Result.Issues.
func Render(st domain.OrderStatus, opts Options) Result {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	res := Result{Blocks: make([]Block, 0, len(st.Process))}

	var acc fold
	for i, rec := range st.Process {
		var (
			b      Block
			ok     bool
			issues []Issue
		)
		b, acc, issues, ok = acc.step(i, rec, opts)
		res.Issues = append(res.Issues, issues...)
		if ok {
			res.Blocks = append(res.Blocks, b)
		}
	}
	return res
}

// fold is the timing state carried from one record to the next.
type fold struct {
	mixAt   time.Time
	hasMix  bool
	lineAt  time.Time
	hasLine bool
}

func (f fold) step(i int, rec domain.ProcessRecord, opts Options) (Block, fold, []Issue, bool) {
	r := &row{index: i, kind: rec.Process}

	switch rec.Process {
	case domain.KindDryPlan:
		r.block(colorPlan,
			[]string{"Plan Date", "Process", "Plan Qty", "Skin Resin", "Binder Resin", "Base"},
			r.field("plan_date", rec.PlanDate),
			r.machine(rec.Machine),
			r.qty("plan_qty", rec.PlanQty),
			r.field("skin_resin", rec.SkinResin),
			r.field("binder_resin", rec.BinderResin),
			r.field("base", rec.Base),
		)

	case domain.KindDryMix:
		if at, ok := r.timestamp(rec.CreateDate); ok {
			f.mixAt, f.hasMix = at, true
		}
		headers := append([]string{"Date", "Process"}, rec.Chemical.Names()...)
		cells := []Cell{{Text: r.date(rec.CreateDate)}, {Text: r.machine(rec.Machine)}}
		for _, ch := range rec.Chemical {
			qty := r.field("chemical "+ch.Name, ch.Qty)
			if opts.ViewerIsManager {
				cells = append(cells, Cell{Text: qty})
			} else {
				cells = append(cells, Cell{Text: opts.Placeholder, Redacted: true})
			}
		}
		r.out = Block{Color: colorMix, Headers: headers, Cells: cells}

	case domain.KindDryLine:
		at, ok := r.timestamp(rec.CreateDate)
		waiting := r.elapsed(f.mixAt, f.hasMix, at, ok)
		if ok {
			f.lineAt, f.hasLine = at, true
		}
		r.block(colorLine,
			[]string{"Date", "Process", "Production Qty", "Waiting"},
			r.date(rec.CreateDate),
			r.machine(rec.Machine),
			r.qty("pd_qty", rec.PdQty),
			waiting,
		)

	case domain.KindRP:
		at, ok := r.timestamp(rec.CreateDate)
		r.block(colorLine,
			[]string{"Date", "Process", "Delamination Qty", "Aging"},
			r.date(rec.CreateDate),
			r.machine(rec.Machine),
			r.qty("delami_qty", rec.DelamiQty),
			r.elapsed(f.lineAt, f.hasLine, at, ok),
		)

	case domain.KindInspection:
		r.block(colorInspect,
			[]string{"Date", "Process", "A Grade"},
			r.date(rec.CreateDate),
			r.machine(rec.Machine),
			r.qty("agrade_qty", rec.AgradeQty),
		)

	case domain.KindPrinting:
		r.block(colorPrint,
			[]string{"Date", "Process", "Quantity"},
			r.date(rec.CreateDate),
			r.machine(rec.Machine),
			r.qty("print_qty", rec.PrintQty),
		)

	default:
		r.issue(IssueUnknownKind, "unknown process kind "+strings.TrimSpace(string(rec.Process)))
		return Block{}, f, r.issues, false
	}

	r.out.Kind = rec.Process
	return r.out, f, r.issues, true
}

// row collects the cells of one record and the issues found on the way.
type row struct {
	index  int
	kind   domain.Kind
	out    Block
	issues []Issue
}

func (r *row) block(color string, headers []string, cells ...string) {
	r.out = Block{Color: color, Headers: headers, Cells: make([]Cell, 0, len(cells))}
	for _, c := range cells {
		r.out.Cells = append(r.out.Cells, Cell{Text: c})
	}
}

func (r *row) issue(t IssueType, detail string) {
	r.issues = append(r.issues, Issue{Index: r.index, Kind: r.kind, Type: t, Detail: detail})
}

func (r *row) field(name string, v domain.Value) string {
	if v.Missing() {
		r.issue(IssueMalformedRecord, "missing "+name)
		return MissingCell
	}
	return strings.TrimSpace(v.String())
}

func (r *row) qty(name string, v domain.Value) string {
	s := r.field(name, v)
	if s == MissingCell {
		return s
	}
	return s + unitSuffix
}

// date cuts a timestamp down to minutes.
func (r *row) date(v domain.Value) string {
	s := r.field("create_date", v)
	if s == MissingCell {
		return s
	}
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10] + " " + s[11:]
	}
	if len(s) > dateWidth {
		s = s[:dateWidth]
	}
	return s
}

// machine labels the stage with its machine index, the last character of
// the machine id.
func (r *row) machine(v domain.Value) string {
	id := []rune(strings.TrimSpace(v.String()))
	if len(id) == 0 {
		r.issue(IssueMalformedRecord, "missing machine")
		return string(r.kind)
	}
	return string(r.kind) + " " + string(id[len(id)-1])
}

// timestamp parses create_date for the timing fold. A missing value is
// already reported by date.
func (r *row) timestamp(v domain.Value) (time.Time, bool) {
	if v.Missing() {
		return time.Time{}, false
	}
	t, err := domain.ParseTimestamp(v.String())
	if err != nil {
		r.issue(IssueBadTimestamp, err.Error())
		return time.Time{}, false
	}
	return t, true
}

func (r *row) elapsed(from time.Time, hasFrom bool, to time.Time, hasTo bool) string {
	if !hasFrom || !hasTo {
		return NotApplicable
	}
	s, err := ElapsedTime(to.Sub(from))
	if err != nil {
		r.issue(IssueOutOfOrder, err.Error())
		return NotApplicable
	}
	return s
}
