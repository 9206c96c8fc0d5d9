package pgshipments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) CreateBatch(ctx context.Context, filename, uploadedBy string, carrier models.Carrier) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO upload_batches (filename, uploaded_by, carrier, status, uploaded_at)
VALUES ($1, $2, $3, $4, now())
RETURNING id
`, filename, uploadedBy, string(carrier), string(models.UploadProcessing)).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert upload batch")
	}
	return id, nil
}

// FinishBatch закрывает партию ровно один раз: повторный вызов ничего не меняет
// и возвращает false.
func (s *Storage) FinishBatch(ctx context.Context, id int64, status models.UploadStatus, sum models.UploadSummary) (bool, error) {
	errs := sum.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return false, errors.Wrap(err, "marshal batch errors")
	}

	tag, err := s.db.Exec(ctx, `
UPDATE upload_batches
SET status = $2,
    total_rows = $3,
    inserted_rows = $4,
    updated_rows = $5,
    duplicate_rows = $6,
    error_rows = $7,
    errors = $8::jsonb,
    finished_at = now()
WHERE id = $1 AND status = $9
`, id, string(status), sum.TotalRows, sum.InsertedRows, sum.UpdatedRows, sum.DuplicateRows, sum.ErrorRows,
		string(errsJSON), string(models.UploadProcessing))
	if err != nil {
		return false, errors.Wrap(err, "finish upload batch")
	}
	return tag.RowsAffected() == 1, nil
}

// FailStaleBatches закрывает партии, зависшие в processing дольше olderThan
// (процесс упал посреди загрузки). Возвращает id закрытых партий.
func (s *Storage) FailStaleBatches(ctx context.Context, olderThan time.Duration, reason string) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
UPDATE upload_batches
SET status = $3,
    error_rows = GREATEST(error_rows, total_rows),
    errors = errors || to_jsonb($2::text),
    finished_at = now()
WHERE status = $4 AND uploaded_at < now() - make_interval(secs => $1)
RETURNING id
`, olderThan.Seconds(), reason, string(models.UploadFailed), string(models.UploadProcessing))
	if err != nil {
		return nil, errors.Wrap(err, "fail stale batches")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan stale batch id")
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return ids, nil
}

func (s *Storage) ListBatches(ctx context.Context, limit int) ([]models.UploadBatch, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
SELECT id, filename, COALESCE(uploaded_by, ''), COALESCE(carrier, ''), uploaded_at, finished_at,
       total_rows, inserted_rows, updated_rows, duplicate_rows, error_rows, status, errors
FROM upload_batches
ORDER BY uploaded_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select upload batches")
	}
	defer rows.Close()

	out := []models.UploadBatch{}
	for rows.Next() {
		var b models.UploadBatch
		var carrier, status string
		var errsJSON []byte
		if err := rows.Scan(
			&b.ID, &b.Filename, &b.UploadedBy, &carrier, &b.UploadedAt, &b.FinishedAt,
			&b.TotalRows, &b.InsertedRows, &b.UpdatedRows, &b.DuplicateRows, &b.ErrorRows, &status, &errsJSON,
		); err != nil {
			return nil, errors.Wrap(err, "scan upload batch")
		}
		b.Carrier = models.Carrier(carrier)
		b.Status = models.UploadStatus(status)
		if len(errsJSON) > 0 {
			_ = json.Unmarshal(errsJSON, &b.Errors)
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
