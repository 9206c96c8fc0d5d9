package pgshipments

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const appendHistorySQL = `
INSERT INTO shipment_history (guia, transportadora, estado, ubicacion, novedad, created_at)
SELECT guia, transportadora, estado, ubicacion, novedad, now()
FROM json_populate_recordset(NULL::shipment_history, $1::json)
RETURNING id, guia, transportadora, estado, ubicacion, novedad, created_at
`

// AppendHistory дописывает записи журнала; created_at всегда ставит база.
func (t *Tx) AppendHistory(ctx context.Context, entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
	return appendHistory(ctx, t.q, entries)
}

func (s *Storage) AppendHistory(ctx context.Context, entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
	return appendHistory(ctx, s.db, entries)
}

func appendHistory(ctx context.Context, q querier, entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "marshal history")
	}
	rows, err := q.Query(ctx, appendHistorySQL, string(payload))
	if err != nil {
		return nil, errors.Wrap(err, "insert history")
	}
	return scanHistory(rows)
}

// ListHistory - записи по номеру отслеживания, новые первыми.
func (s *Storage) ListHistory(ctx context.Context, guia string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := s.db.Query(ctx, `
SELECT id, guia, transportadora, estado, ubicacion, novedad, created_at
FROM shipment_history
WHERE guia = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, guia, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]models.HistoryEntry, error) {
	defer rows.Close()
	out := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var carrier, status *string
		if err := rows.Scan(&e.ID, &e.Guia, &carrier, &status, &e.Ubicacion, &e.Novedad, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		if carrier != nil {
			e.Transportadora = *carrier
		}
		if status != nil {
			e.Estado = *status
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
