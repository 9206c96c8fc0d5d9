package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// HistoryEntry - строка журнала shipment_history. Только добавление.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Guia           string    `json:"guia"`
	Transportadora string    `json:"transportadora"`
	Estado         string    `json:"estado"`
	Ubicacion      *string   `json:"ubicacion"`
	Novedad        *string   `json:"novedad"`
	CreatedAt      time.Time `json:"created_at"`
}

// FieldDiff - значение колонки до и после ручной правки.
type FieldDiff struct {
	Old any `json:"old"`
	New any `json:"new"`
}

type FieldDiffs map[string]FieldDiff

// Summary renders the diffs as "campo: antes → después" sorted by column name.
func (d FieldDiffs) Summary() string {
	fields := make([]string, 0, len(d))
	for f := range d {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s → %s", f, diffValue(d[f].Old), diffValue(d[f].New)))
	}
	return strings.Join(parts, "; ")
}

func diffValue(v any) string {
	if v == nil {
		return "∅"
	}
	return fmt.Sprint(v)
}

// StatusChange - принудительная смена статуса (массовая правка или запрос из Kafka).
// Remark == nil оставляет примечание записи как есть.
type StatusChange struct {
	Status   string
	Remark   *string
	Location *string
}
