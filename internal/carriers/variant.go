package carriers

import (
	"fmt"
	"strings"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/pkg/errors"
)

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindKey
	KindDate
	KindInt
	KindBigInt
)

// Column - колонка канонической записи в таблице перевозчика.
type Column struct {
	Name string
	Kind ColumnKind
}

// Variant описывает всё, что отличает одного перевозчика от другого:
// таблицу, ключ, колонки поиска, словарь статусов и маппинг строки файла.
type Variant struct {
	Carrier models.Carrier
	Label   string
	Table   string

	Columns []Column
	// KeyColumns - натуральный ключ (уникальный индекс таблицы).
	KeyColumns [2]string
	// LookupColumns - по ним ищет резолвер (номер отслеживания ИЛИ номер заказа).
	LookupColumns    [2]string
	TrackingColumn   string
	RemarkColumn     string
	StatusDateColumn string
	// UpdateColumns перезаписываются при повторной загрузке, если изменился статус или примечание.
	UpdateColumns []string

	Statuses        []string
	DefaultStatus   string
	ExpectedHeaders []string
	MissingKeyText  string

	mapRow    func(r Row) models.Shipment
	newRecord func() models.Shipment
}

// Map превращает строку файла в типизированную запись. Никогда не падает:
// не найденные или нечитаемые значения становятся nil.
func (v *Variant) Map(raw map[string]any) models.Shipment {
	return v.mapRow(NewRow(raw))
}

func (v *Variant) New() models.Shipment {
	return v.newRecord()
}

func (v *Variant) ColumnNames() []string {
	out := make([]string, 0, len(v.Columns))
	for _, c := range v.Columns {
		out = append(out, c.Name)
	}
	return out
}

func (v *Variant) HasColumn(name string) bool {
	for _, c := range v.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (v *Variant) IsValidStatus(status string) bool {
	for _, s := range v.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MissingKey возвращает ошибку строки, если обе половины ключа пустые.
// rowNumber - номер строки в файле (заголовок = 1).
func (v *Variant) MissingKey(rec models.Shipment, rowNumber int) string {
	a, b := rec.NaturalKey()
	if a != "" || b != "" {
		return ""
	}
	return fmt.Sprintf("Fila %d: %s", rowNumber, v.MissingKeyText)
}

var (
	registry = map[models.Carrier]*Variant{
		models.CarrierNatura:   Natura,
		models.CarrierOriflame: Oriflame,
		models.CarrierOffcors:  Offcors,
	}

	aliases = map[string]models.Carrier{
		"natura":           models.CarrierNatura,
		"remesas":          models.CarrierNatura,
		"remesasymensajes": models.CarrierNatura,
		"rym":              models.CarrierNatura,
		"oriflame":         models.CarrierOriflame,
		"offcors":          models.CarrierOffcors,
		"hermeco":          models.CarrierOffcors,
	}
)

var ErrUnknownCarrier = errors.New("unknown carrier")

// ProbeOrder - порядок перебора таблиц, когда перевозчик не указан.
// Первое совпадение выигрывает, даже если номер есть и в других таблицах.
func ProbeOrder() []*Variant {
	return []*Variant{Natura, Oriflame, Offcors}
}

func All() []*Variant {
	return ProbeOrder()
}

func Get(c models.Carrier) (*Variant, bool) {
	v, ok := registry[c]
	return v, ok
}

// Lookup ищет перевозчика по коду или имени клиента ("Natura", "Oriflame", "OFFCORS").
func Lookup(name string) (*Variant, error) {
	n := Normalize(strings.TrimSpace(name))
	if c, ok := aliases[n]; ok {
		return registry[c], nil
	}
	return nil, errors.Wrapf(ErrUnknownCarrier, "%q", name)
}
