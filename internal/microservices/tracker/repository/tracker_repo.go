package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"production-tracker/internal/domain"
	"production-tracker/internal/repository"
)

// RecordTimeLayout is how process_records.create_date is handed to the renderer.
const RecordTimeLayout = "2006-01-02 15:04:05"

type TrackerRepoInterface interface {
	Records(ctx context.Context, orderID int64) ([]domain.ProcessRecord, error)
}

type TrackerRepo struct {
	db repository.DBTX
}

func NewTrackerRepo(db repository.DBTX) *TrackerRepo { return &TrackerRepo{db: db} }

// Records returns the stages recorded for an order, oldest first.
func (r *TrackerRepo) Records(ctx context.Context, orderID int64) ([]domain.ProcessRecord, error) {
	rows, err := r.db.Query(ctx, `
SELECT process, machine, payload, create_date
FROM process_records WHERE order_id=$1
ORDER BY create_date ASC, id ASC
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "query process records")
	}
	defer rows.Close()

	out := []domain.ProcessRecord{}
	for rows.Next() {
		var (
			process, machine string
			payload          []byte
			at               time.Time
		)
		if err := rows.Scan(&process, &machine, &payload, &at); err != nil {
			return nil, errors.Wrap(err, "scan process record")
		}
		rec, err := decodeRecord(process, machine, payload, at)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate process records")
}

// decodeRecord merges the kind specific payload with the indexed columns;
// the columns win.
func decodeRecord(process, machine string, payload []byte, at time.Time) (domain.ProcessRecord, error) {
	var rec domain.ProcessRecord
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec); err != nil {
			return rec, errors.Wrapf(err, "decode %s payload", process)
		}
	}
	rec.Process = domain.Kind(process)
	rec.Machine = domain.Text(machine)
	rec.CreateDate = domain.Text(at.Format(RecordTimeLayout))
	return rec, nil
}
