package pgshipments

import (
	"context"
	"fmt"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/pkg/errors"
)

func columnType(v *carriers.Variant, c carriers.Column) string {
	if c.Name == "estado" {
		return fmt.Sprintf("TEXT NOT NULL DEFAULT '%s'", v.DefaultStatus)
	}
	switch c.Kind {
	case carriers.KindKey:
		return "TEXT NOT NULL DEFAULT ''"
	case carriers.KindDate:
		return "DATE NULL"
	case carriers.KindInt:
		return "INTEGER NULL"
	case carriers.KindBigInt:
		return "BIGINT NULL"
	default:
		return "TEXT NULL"
	}
}

// shipmentTableStmts - DDL таблицы перевозчика, собранный из описания Variant.
func shipmentTableStmts(v *carriers.Variant) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n  id BIGSERIAL PRIMARY KEY,\n", v.Table)
	for _, c := range v.Columns {
		fmt.Fprintf(&b, "  %s %s,\n", c.Name, columnType(v, c))
	}
	b.WriteString("  cliente TEXT NULL,\n")
	b.WriteString("  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
	b.WriteString("  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()\n)")

	stmts := []string{b.String()}

	// Миграции для старых таблиц, созданных без части колонок.
	for _, c := range v.Columns {
		stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, v.Table, c.Name, columnType(v, c)))
	}

	k1, k2 := v.KeyColumns[0], v.KeyColumns[1]
	l1, l2 := v.LookupColumns[0], v.LookupColumns[1]
	stmts = append(stmts,
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%s_natural_key ON %s(%s, %s)`, v.Table, v.Table, k1, k2),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`, v.Table, l1, v.Table, l1),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`, v.Table, l2, v.Table, l2),
	)
	return stmts
}

func schemaStmts() []string {
	var stmts []string
	for _, v := range carriers.All() {
		stmts = append(stmts, shipmentTableStmts(v)...)
	}
	stmts = append(stmts,
		`
CREATE TABLE IF NOT EXISTS shipment_history (
  id BIGSERIAL PRIMARY KEY,
  guia TEXT NOT NULL,
  transportadora TEXT NULL,
  estado TEXT NULL,
  ubicacion TEXT NULL,
  novedad TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipment_history_guia ON shipment_history(guia, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS upload_batches (
  id BIGSERIAL PRIMARY KEY,
  filename TEXT NOT NULL,
  uploaded_by TEXT NULL,
  carrier TEXT NULL,
  uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  finished_at TIMESTAMPTZ NULL,
  total_rows INTEGER NOT NULL DEFAULT 0,
  inserted_rows INTEGER NOT NULL DEFAULT 0,
  updated_rows INTEGER NOT NULL DEFAULT 0,
  duplicate_rows INTEGER NOT NULL DEFAULT 0,
  error_rows INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'processing',
  errors JSONB NOT NULL DEFAULT '[]'::jsonb
)`,
		`ALTER TABLE upload_batches ADD COLUMN IF NOT EXISTS carrier TEXT NULL`,
		`ALTER TABLE upload_batches ADD COLUMN IF NOT EXISTS finished_at TIMESTAMPTZ NULL`,
		`ALTER TABLE upload_batches ADD COLUMN IF NOT EXISTS updated_rows INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE upload_batches ADD COLUMN IF NOT EXISTS errors JSONB NOT NULL DEFAULT '[]'::jsonb`,
		`CREATE INDEX IF NOT EXISTS idx_upload_batches_uploaded_at ON upload_batches(uploaded_at DESC)`,
	)
	return stmts
}

// InitSchema идемпотентно создаёт таблицы; вызывается при старте и из `shipctl migrate`.
func (s *Storage) InitSchema(ctx context.Context) error {
	for _, q := range schemaStmts() {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
