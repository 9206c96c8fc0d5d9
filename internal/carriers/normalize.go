package carriers

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinHeaderMatchRatio - доля ожидаемых колонок, которую должен покрыть заголовок файла.
const MinHeaderMatchRatio = 0.5

// Normalize приводит заголовок к виду для сравнения:
// без диакритики, в нижнем регистре, только [a-z0-9].
// "Número Pedido" -> "numeropedido", "Fecha ingreso a R&M" -> "fechaingresoarm".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validation - результат проверки заголовков файла.
type Validation struct {
	Valid           bool
	Matched         int
	Expected        int
	Error           string
	DetectedHeaders []string
}

func (v Validation) Ratio() float64 {
	if v.Expected == 0 {
		return 0
	}
	return float64(v.Matched) / float64(v.Expected)
}

// ValidateStructure проверяет, что заголовки похожи на формат перевозчика.
// Ожидаемая колонка считается найденной, если какой-то непустой заголовок
// содержит её или содержится в ней (после Normalize).
func ValidateStructure(headers []string, v *Variant) Validation {
	detected := make([]string, 0, len(headers))
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		detected = append(detected, strings.TrimSpace(h))
		if n := Normalize(h); n != "" {
			normalized = append(normalized, n)
		}
	}

	matched := 0
	for _, exp := range v.ExpectedHeaders {
		e := Normalize(exp)
		for _, h := range normalized {
			if strings.Contains(h, e) || strings.Contains(e, h) {
				matched++
				break
			}
		}
	}

	res := Validation{
		Matched:         matched,
		Expected:        len(v.ExpectedHeaders),
		DetectedHeaders: detected,
	}
	res.Valid = res.Expected > 0 && res.Ratio() >= MinHeaderMatchRatio
	if !res.Valid {
		head := v.ExpectedHeaders
		if len(head) > 5 {
			head = head[:5]
		}
		res.Error = fmt.Sprintf(
			"El archivo no corresponde a %s. La estructura de columnas no coincide. Se esperaban columnas como: %s...",
			strings.ToUpper(v.Label), strings.Join(head, ", "),
		)
	}
	return res
}
