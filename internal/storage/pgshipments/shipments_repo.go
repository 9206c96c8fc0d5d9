package pgshipments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Touched - строка, которую вставили или изменили; из неё строится запись истории.
type Touched struct {
	ID     int64
	Guia   string
	Estado string
	Remark *string
	Client *string
}

// ChunkWriter - операции, которые выполняются внутри одной транзакции чанка.
type ChunkWriter interface {
	InsertShipments(ctx context.Context, v *carriers.Variant, client string, recs []models.Shipment) ([]Touched, error)
	UpdateChangedShipments(ctx context.Context, v *carriers.Variant, recs []models.Shipment) ([]Touched, error)
	OverwriteStatus(ctx context.Context, v *carriers.Variant, ids []int64, status string, remark *string) ([]Touched, error)
	AppendHistory(ctx context.Context, entries []models.HistoryEntry) ([]models.HistoryEntry, error)
}

// Tx - ChunkWriter поверх открытой транзакции.
type Tx struct {
	q querier
}

var _ ChunkWriter = (*Tx)(nil)

func recordsJSON(recs []models.Shipment) ([]byte, error) {
	b, err := json.Marshal(recs)
	if err != nil {
		return nil, errors.Wrap(err, "marshal records")
	}
	return b, nil
}

func returning(v *carriers.Variant, alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf("%[1]sid, %[1]s%[2]s, %[1]sestado, %[1]s%[3]s, %[1]scliente", p, v.TrackingColumn, v.RemarkColumn)
}

func scanTouched(rows pgx.Rows) ([]Touched, error) {
	defer rows.Close()
	var out []Touched
	for rows.Next() {
		var t Touched
		if err := rows.Scan(&t.ID, &t.Guia, &t.Estado, &t.Remark, &t.Client); err != nil {
			return nil, errors.Wrap(err, "scan touched")
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func insertSQL(v *carriers.Variant) string {
	cols := strings.Join(v.ColumnNames(), ", ")
	return fmt.Sprintf(`
INSERT INTO %[1]s (%[2]s, cliente, created_at, updated_at)
SELECT %[2]s, $2::text, now(), now()
FROM json_populate_recordset(NULL::%[1]s, $1::json)
ON CONFLICT (%[3]s, %[4]s) DO NOTHING
RETURNING %[5]s
`, v.Table, cols, v.KeyColumns[0], v.KeyColumns[1], returning(v, ""))
}

// InsertShipments вставляет новые записи; существующие по натуральному ключу пропускаются.
// Возвращает только реально вставленные строки.
func (t *Tx) InsertShipments(ctx context.Context, v *carriers.Variant, client string, recs []models.Shipment) ([]Touched, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	payload, err := recordsJSON(recs)
	if err != nil {
		return nil, err
	}
	rows, err := t.q.Query(ctx, insertSQL(v), string(payload), models.StrPtr(client))
	if err != nil {
		return nil, errors.Wrapf(err, "insert %s", v.Table)
	}
	return scanTouched(rows)
}

func updateChangedSQL(v *carriers.Variant) string {
	k1, k2 := v.KeyColumns[0], v.KeyColumns[1]
	sets := make([]string, 0, len(v.UpdateColumns)+1)
	for _, c := range v.UpdateColumns {
		sets = append(sets, fmt.Sprintf("%[1]s = i.%[1]s", c))
	}
	sets = append(sets, "updated_at = now()")

	return fmt.Sprintf(`
WITH incoming AS (
  SELECT DISTINCT ON (r.%[2]s, r.%[3]s) r.*
  FROM json_populate_recordset(NULL::%[1]s, $1::json) WITH ORDINALITY AS r
  ORDER BY r.%[2]s, r.%[3]s, r.ordinality DESC
)
UPDATE %[1]s t
SET %[4]s
FROM incoming i
WHERE t.%[2]s = i.%[2]s AND t.%[3]s = i.%[3]s
  AND (t.estado IS DISTINCT FROM i.estado OR t.%[5]s IS DISTINCT FROM i.%[5]s)
RETURNING %[6]s
`, v.Table, k1, k2, strings.Join(sets, ", "), v.RemarkColumn, returning(v, "t"))
}

// UpdateChangedShipments перезаписывает статус и примечание у существующих записей,
// если они отличаются от файла. Дубликаты ключа внутри чанка: побеждает последняя строка.
func (t *Tx) UpdateChangedShipments(ctx context.Context, v *carriers.Variant, recs []models.Shipment) ([]Touched, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	payload, err := recordsJSON(recs)
	if err != nil {
		return nil, err
	}
	rows, err := t.q.Query(ctx, updateChangedSQL(v), string(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "update %s", v.Table)
	}
	return scanTouched(rows)
}

func overwriteStatusSQL(v *carriers.Variant) string {
	return fmt.Sprintf(`
UPDATE %[1]s
SET estado = $2, %[2]s = COALESCE($3::text, %[2]s), %[3]s = CURRENT_DATE, updated_at = now()
WHERE id = ANY($1)
RETURNING %[4]s
`, v.Table, v.RemarkColumn, v.StatusDateColumn, returning(v, ""))
}

// OverwriteStatus - массовая смена статуса; дата статуса ставится на сегодня.
// remark == nil оставляет примечание как есть.
func (t *Tx) OverwriteStatus(ctx context.Context, v *carriers.Variant, ids []int64, status string, remark *string) ([]Touched, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.q.Query(ctx, overwriteStatusSQL(v), ids, status, remark)
	if err != nil {
		return nil, errors.Wrapf(err, "overwrite status %s", v.Table)
	}
	return scanTouched(rows)
}

func (s *Storage) findOne(ctx context.Context, v *carriers.Variant, where string, arg any) (models.Shipment, error) {
	q := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t WHERE %s ORDER BY t.id LIMIT 1`, v.Table, where)

	var raw []byte
	err := s.db.QueryRow(ctx, q, arg).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select %s", v.Table)
	}

	rec := v.New()
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, errors.Wrapf(err, "decode %s", v.Table)
	}
	return rec, nil
}

// FindByIdentifier ищет по номеру отслеживания ИЛИ номеру заказа; при нескольких
// совпадениях берётся запись с меньшим id.
func (s *Storage) FindByIdentifier(ctx context.Context, v *carriers.Variant, identifier string) (models.Shipment, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, ErrNotFound
	}
	where := fmt.Sprintf("t.%s = $1 OR t.%s = $1", v.LookupColumns[0], v.LookupColumns[1])
	return s.findOne(ctx, v, where, identifier)
}

func (s *Storage) FindByID(ctx context.Context, v *carriers.Variant, id int64) (models.Shipment, error) {
	return s.findOne(ctx, v, "t.id = $1", id)
}

func updateRecordSQL(v *carriers.Variant) string {
	cols := strings.Join(v.ColumnNames(), ", ")
	return fmt.Sprintf(`
UPDATE %[1]s t
SET (%[2]s) = (SELECT %[2]s FROM json_populate_record(NULL::%[1]s, $2::json)),
    updated_at = now()
WHERE t.id = $1
`, v.Table, cols)
}

// UpdateShipment записывает все канонические колонки записи rec (ручная правка).
func (s *Storage) UpdateShipment(ctx context.Context, v *carriers.Variant, id int64, rec models.Shipment) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	tag, err := s.db.Exec(ctx, updateRecordSQL(v), id, string(payload))
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return errors.Wrapf(err, "update %s", v.Table)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteShipment(ctx context.Context, v *carriers.Variant, id int64) error {
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, v.Table), id)
	if err != nil {
		return errors.Wrapf(err, "delete %s", v.Table)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountStatuses - сводка по категориям статусов для одной таблицы.
func (s *Storage) CountStatuses(ctx context.Context, v *carriers.Variant) (models.StatusCounts, error) {
	q := fmt.Sprintf(`
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%ENTREGADO%%'),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%FALLIDO%%' OR UPPER(estado) LIKE '%%RECHAZADO%%'),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%DEVUEL%%' OR UPPER(estado) LIKE '%%DEVOLUCION%%'),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%PERDIDO%%' OR UPPER(estado) LIKE '%%EXTRAVIADO%%'),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%TRANSITO%%' OR UPPER(estado) LIKE '%%REPARTO%%'),
  COUNT(*) FILTER (WHERE UPPER(estado) LIKE '%%PENDIENTE%%' OR estado = '')
FROM %s
`, v.Table)

	out := models.StatusCounts{Carrier: v.Carrier}
	err := s.db.QueryRow(ctx, q).Scan(
		&out.Total, &out.Delivered, &out.Failed, &out.Returned, &out.Lost, &out.InTransit, &out.Pending,
	)
	if err != nil {
		return out, errors.Wrapf(err, "count statuses %s", v.Table)
	}
	return out, nil
}
