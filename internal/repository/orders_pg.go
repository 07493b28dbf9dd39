package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"production-tracker/internal/domain"
)

// DBTX is the part of pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Orders reads and writes sales orders. It is shared by every service
// that resolves an order number.
type Orders interface {
	Create(ctx context.Context, o domain.SalesOrder) (domain.SalesOrder, error)
	ByNumber(ctx context.Context, orderNo string) (domain.SalesOrder, error)
	ByNumbers(ctx context.Context, orderNos []string) ([]domain.SalesOrder, error)
	Search(ctx context.Context, c domain.SearchCriteria) ([]domain.SalesOrder, error)
	MarkDeleted(ctx context.Context, orderNo string) error
}

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id", "order_no", "order_id", "seq_no", "customer_name", "order_type", "order_date",
	"brand", "item_name", "color_code", "pattern", "spec", "order_qty", "qty_unit",
	"status", "create_date",
}

type ordersPG struct{ db DBTX }

func NewOrdersPG(db DBTX) Orders { return &ordersPG{db: db} }

func (r *ordersPG) Create(ctx context.Context, o domain.SalesOrder) (domain.SalesOrder, error) {
	sql, args, err := psql.Insert("sales_orders").
		Columns("order_no", "order_id", "seq_no", "customer_name", "order_type", "order_date",
			"brand", "item_name", "color_code", "pattern", "spec", "order_qty", "qty_unit").
		Values(o.OrderNo, o.OrderID, o.SeqNo, o.CustomerName, o.OrderType, o.OrderDate,
			o.Brand, o.ItemName, o.ColorCode, o.Pattern, o.Spec, o.OrderQty, o.QtyUnit).
		Suffix("RETURNING id, create_date").
		ToSql()
	if err != nil {
		return o, errors.Wrap(err, "build insert")
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&o.ID, &o.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return o, errors.Wrap(domain.ErrDuplicate, o.OrderNo)
	}
	if err != nil {
		return o, errors.Wrapf(err, "insert order %s", o.OrderNo)
	}
	return o, nil
}

func (r *ordersPG) ByNumber(ctx context.Context, orderNo string) (domain.SalesOrder, error) {
	sql, args, err := psql.Select(orderColumns...).From("sales_orders").
		Where(sq.Eq{"order_no": orderNo}).
		ToSql()
	if err != nil {
		return domain.SalesOrder{}, errors.Wrap(err, "build select")
	}

	o, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SalesOrder{}, errors.Wrap(domain.ErrNotFound, orderNo)
	}
	if err != nil {
		return domain.SalesOrder{}, errors.Wrapf(err, "select order %s", orderNo)
	}
	return o, nil
}

// ByNumbers returns the active orders among orderNos, in the order asked for.
// Unknown numbers are left out.
func (r *ordersPG) ByNumbers(ctx context.Context, orderNos []string) ([]domain.SalesOrder, error) {
	if len(orderNos) == 0 {
		return nil, nil
	}
	sql, args, err := psql.Select(orderColumns...).From("sales_orders").
		Where(activeOnly).
		Where(sq.Eq{"order_no": orderNos}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}

	found, err := r.queryOrders(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	byNo := make(map[string]domain.SalesOrder, len(found))
	for _, o := range found {
		byNo[o.OrderNo] = o
	}
	out := make([]domain.SalesOrder, 0, len(found))
	for _, no := range orderNos {
		if o, ok := byNo[no]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Search expects criteria that already passed Validate.
func (r *ordersPG) Search(ctx context.Context, c domain.SearchCriteria) ([]domain.SalesOrder, error) {
	sql, args, err := searchQuery(c).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build search")
	}
	return r.queryOrders(ctx, sql, args)
}

func (r *ordersPG) MarkDeleted(ctx context.Context, orderNo string) error {
	sql, args, err := psql.Update("sales_orders").
		Set("status", false).
		Set("modify_date", sq.Expr("now()")).
		Where(sq.Eq{"order_no": orderNo}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update")
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrapf(err, "delete order %s", orderNo)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrNotFound, orderNo)
	}
	return nil
}

// activeOnly hides deleted orders; shipped ones stay searchable.
var activeOnly = sq.Or{sq.Eq{"status": nil}, sq.Eq{"status": true}}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }

func searchQuery(c domain.SearchCriteria) sq.SelectBuilder {
	q := psql.Select(orderColumns...).From("sales_orders").Where(activeOnly)
	if c.OrderNo != "" {
		q = q.Where(sq.ILike{"order_no": likeEscaper.Replace(c.OrderNo) + "%"})
	}
	if c.Item != "" {
		q = q.Where(sq.ILike{"item_name": contains(c.Item)})
	}
	if c.ColorCode != "" {
		q = q.Where(sq.ILike{"color_code": contains(c.ColorCode)})
	}
	if c.Pattern != "" {
		q = q.Where(sq.ILike{"pattern": contains(c.Pattern)})
	}
	if c.Customer != "" {
		q = q.Where(sq.ILike{"customer_name": contains(c.Customer)})
	}
	if c.OrderType != "" {
		q = q.Where(sq.Eq{"order_type": c.OrderType})
	}
	if !c.From.IsZero() {
		q = q.Where(sq.GtOrEq{"order_date": c.From}).Where(sq.Lt{"order_date": c.To})
	}
	return q.OrderBy("order_date DESC", "order_no").
		Limit(uint64(c.Limit)).
		Offset(uint64(c.Offset))
}

func (r *ordersPG) queryOrders(ctx context.Context, sql string, args []any) ([]domain.SalesOrder, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var out []domain.SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "iterate orders")
}

func scanOrder(row pgx.Row) (domain.SalesOrder, error) {
	var o domain.SalesOrder
	err := row.Scan(&o.ID, &o.OrderNo, &o.OrderID, &o.SeqNo, &o.CustomerName, &o.OrderType, &o.OrderDate,
		&o.Brand, &o.ItemName, &o.ColorCode, &o.Pattern, &o.Spec, &o.OrderQty, &o.QtyUnit,
		&o.Status, &o.CreatedAt)
	return o, err
}
