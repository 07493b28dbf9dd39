package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"production-tracker/internal/domain"
	"production-tracker/internal/repository"
)

type RecorderRepositoryInterface interface {
	InsertRecord(ctx context.Context, orderID int64, workerCode string, rec domain.ProcessRecord, at time.Time) (int64, error)
}

type RecorderRepository struct {
	db repository.DBTX
}

func NewRecorderRepository(db repository.DBTX) RecorderRepositoryInterface {
	return &RecorderRepository{db: db}
}

// InsertRecord stores one stage. process, machine and create_date live in
// their own columns; the kind specific fields go to payload.
func (r *RecorderRepository) InsertRecord(ctx context.Context, orderID int64, workerCode string, rec domain.ProcessRecord, at time.Time) (int64, error) {
	payload, err := encodePayload(rec)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx, `
INSERT INTO process_records (order_id, process, machine, worker_code, payload, create_date)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id
`, orderID, string(rec.Process), rec.Machine.String(), workerCode, string(payload), at.UTC()).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "insert %s record for order %d", rec.Process, orderID)
	}
	return id, nil
}

func encodePayload(rec domain.ProcessRecord) ([]byte, error) {
	rec.Process, rec.Machine, rec.CreateDate = "", domain.Value{}, domain.Value{}
	b, err := json.Marshal(rec)
	return b, errors.Wrap(err, "encode payload")
}
