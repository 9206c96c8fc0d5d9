package carriers

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ShipLedger/internal/models"
)

// excelEpochOffset - дней между 1899-12-30 (ноль Excel) и 1970-01-01.
const excelEpochOffset = 25569

// maxExcelSerial - 9999-12-31, последний день, который понимает Excel.
const maxExcelSerial = 2958465

// Row - строка файла с нормализованными заголовками.
// Единственное место, где код смотрит на нетипизированные названия колонок.
type Row struct {
	values map[string]any
}

// NewRow строит таблицу поиска по нормализованным заголовкам.
// При коллизии побеждает заголовок, который раньше по алфавиту.
func NewRow(raw map[string]any) Row {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]any, len(raw))
	for _, k := range keys {
		n := Normalize(k)
		if n == "" || isBlank(raw[k]) {
			continue
		}
		if _, ok := values[n]; !ok {
			values[n] = raw[k]
		}
	}
	return Row{values: values}
}

// Get возвращает значение первого найденного синонима.
func (r Row) Get(synonyms ...string) (any, bool) {
	for _, s := range synonyms {
		if v, ok := r.values[Normalize(s)]; ok {
			return v, true
		}
	}
	return nil, false
}

func (r Row) Text(synonyms ...string) *string {
	v, ok := r.Get(synonyms...)
	if !ok {
		return nil
	}
	return models.StrPtr(stringify(v))
}

// Key is Text for natural-key columns, which are never NULL.
func (r Row) Key(synonyms ...string) string {
	v, ok := r.Get(synonyms...)
	if !ok {
		return ""
	}
	return stringify(v)
}

func (r Row) TextOr(def string, synonyms ...string) string {
	if s := r.Text(synonyms...); s != nil {
		return *s
	}
	return def
}

func (r Row) Date(synonyms ...string) *models.Date {
	v, ok := r.Get(synonyms...)
	if !ok {
		return nil
	}
	return ParseDate(v)
}

func (r Row) Int(synonyms ...string) *int64 {
	v, ok := r.Get(synonyms...)
	if !ok {
		return nil
	}
	return ParseInt(v)
}

// Digits оставляет только цифры и парсит результат.
func (r Row) Digits(synonyms ...string) *int64 {
	s := r.DigitString(synonyms...)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func (r Row) DigitString(synonyms ...string) string {
	v, ok := r.Get(synonyms...)
	if !ok {
		return ""
	}
	return onlyDigits(stringify(v))
}

// ParseDate принимает нативную дату, серийный номер Excel, DD/MM/YYYY или ISO.
// Всё остальное - nil.
func ParseDate(v any) *models.Date {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		d := models.NewDate(t)
		return &d
	case *time.Time:
		if t == nil {
			return nil
		}
		return ParseDate(*t)
	case float64:
		return fromSerial(t)
	case float32:
		return fromSerial(float64(t))
	case int:
		return fromSerial(float64(t))
	case int64:
		return fromSerial(float64(t))
	case string:
		return parseDateString(t)
	default:
		return parseDateString(fmt.Sprint(t))
	}
}

func fromSerial(serial float64) *models.Date {
	if math.IsNaN(serial) || serial < 1 || serial >= maxExcelSerial+1 {
		return nil
	}
	secs := math.Round((serial - excelEpochOffset) * 86400)
	d := models.NewDate(time.Unix(int64(secs), 0).UTC())
	return &d
}

var isoLayouts = []string{
	models.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
}

func parseDateString(s string) *models.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// CSV отдаёт серийные номера строкой.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		if d := dayMonthYear(parts); d != nil {
			return d
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := models.NewDate(t)
			return &d
		}
	}
	return nil
}

func dayMonthYear(parts []string) *models.Date {
	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	// "05/01/2024 10:30" - время отбрасываем
	yearPart := strings.Fields(parts[2])
	if err1 != nil || err2 != nil || len(yearPart) == 0 {
		return nil
	}
	year, err := strconv.Atoi(yearPart[0])
	if err != nil {
		return nil
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return nil
	}
	d := models.NewDate(t)
	return &d
}

// ParseInt - как parseInt в таблицах: берёт ведущие цифры, "12 días" -> 12.
func ParseInt(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		n := int64(t)
		return &n
	case int64:
		return &t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n := int64(t)
		return &n
	}

	s := strings.TrimSpace(stringify(v))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return nil
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(models.DateLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
