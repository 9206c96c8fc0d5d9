package models

import "time"

// Shipment - каноническая запись одного перевозчика.
type Shipment interface {
	Carrier() Carrier
	Base() *ShipmentMeta
	// NaturalKey возвращает пару колонок уникального ключа таблицы.
	NaturalKey() (string, string)
	TrackingNumber() string
	OrderNumber() string
	Status() string
	SetStatus(status string)
	// Remark - колонка примечания, участвующая в сравнении при повторной загрузке.
	Remark() *string
	View() TrackingView
}

// ShipmentMeta - поля, которые выставляет хранилище, а не файл.
type ShipmentMeta struct {
	ID        int64      `json:"id,omitempty"`
	Client    *string    `json:"cliente"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (m *ShipmentMeta) Base() *ShipmentMeta { return m }

// LastTouched - время последнего изменения записи.
func (m *ShipmentMeta) LastTouched() time.Time {
	if m.UpdatedAt != nil {
		return *m.UpdatedAt
	}
	if m.CreatedAt != nil {
		return *m.CreatedAt
	}
	return time.Time{}
}

type NaturaShipment struct {
	ShipmentMeta
	Transportadora *string `json:"transportadora"`
	FechaDespacho  *Date   `json:"fecha_despacho"`
	Pedido         string  `json:"pedido"`
	Guia           string  `json:"guia"`
	Estado         string  `json:"estado"`
	Fecha          *Date   `json:"fecha"`
	Novedad        *string `json:"novedad"`
	PE             *string `json:"pe"`
	CodCN          *string `json:"cod_cn"`
	NombreCN       *string `json:"nombre_cn"`
	Departamento   *string `json:"departamento"`
	Ciudad         *string `json:"ciudad"`
	Direccion      *string `json:"direccion"`
	Telefono       *string `json:"telefono"`
}

func (s *NaturaShipment) Carrier() Carrier { return CarrierNatura }
func (s *NaturaShipment) NaturalKey() (string, string) { return s.Pedido, s.Guia }
func (s *NaturaShipment) TrackingNumber() string { return s.Guia }
func (s *NaturaShipment) OrderNumber() string { return s.Pedido }
func (s *NaturaShipment) Status() string { return s.Estado }
func (s *NaturaShipment) SetStatus(status string) { s.Estado = status }
func (s *NaturaShipment) Remark() *string { return s.Novedad }

func (s *NaturaShipment) View() TrackingView {
	return TrackingView{
		ID:             s.ID,
		Carrier:        CarrierNatura,
		Guia:           s.Guia,
		Pedido:         s.Pedido,
		Destinatario:   s.NombreCN,
		Direccion:      s.Direccion,
		Ciudad:         s.Ciudad,
		Departamento:   s.Departamento,
		Estado:         s.Estado,
		FechaDespacho:  s.FechaDespacho,
		Transportadora: firstNonEmpty(s.Transportadora, "Natura"),
		Servicio:       firstNonEmpty(s.Client, "Natura"),
		Novedad:        s.Novedad,
	}
}

type OriflameShipment struct {
	ShipmentMeta
	Guia             string  `json:"guia"`
	Destinatario     *string `json:"destinatario"`
	NumeroPedido     string  `json:"numero_pedido"`
	CodigoEmpresaria *string `json:"codigo_empresaria"`
	Direccion        *string `json:"direccion"`
	Telefono         *string `json:"telefono"`
	Ciudad           *string `json:"ciudad"`
	Departamento     *string `json:"departamento"`
	FechaIngreso     *Date   `json:"fecha_ingreso"`
	FechaEntrega     *Date   `json:"fecha_entrega"`
	FechaPromesa     *Date   `json:"fecha_promesa"`
	DiasPromesa      *int64  `json:"dias_promesa"`
	Estado           string  `json:"estado"`
	Novedad          *string `json:"novedad"`
	Novedad2         *string `json:"novedad2"`
}

func (s *OriflameShipment) Carrier() Carrier { return CarrierOriflame }
func (s *OriflameShipment) NaturalKey() (string, string) { return s.NumeroPedido, s.Guia }
func (s *OriflameShipment) TrackingNumber() string { return s.Guia }
func (s *OriflameShipment) OrderNumber() string { return s.NumeroPedido }
func (s *OriflameShipment) Status() string { return s.Estado }
func (s *OriflameShipment) SetStatus(status string) { s.Estado = status }
func (s *OriflameShipment) Remark() *string { return s.Novedad }

func (s *OriflameShipment) View() TrackingView {
	return TrackingView{
		ID:             s.ID,
		Carrier:        CarrierOriflame,
		Guia:           s.Guia,
		Pedido:         s.NumeroPedido,
		Destinatario:   s.Destinatario,
		Direccion:      s.Direccion,
		Ciudad:         s.Ciudad,
		Departamento:   s.Departamento,
		Estado:         s.Estado,
		FechaDespacho:  s.FechaIngreso,
		FechaEntrega:   s.FechaEntrega,
		Transportadora: "Oriflame",
		Servicio:       firstNonEmpty(s.Client, "Oriflame"),
		Novedad:        s.Novedad,
	}
}

type OffcorsShipment struct {
	ShipmentMeta
	Fecha            *Date   `json:"fecha"`
	NoCierreDespacho *int64  `json:"no_cierre_despacho"`
	NoGuiaHermeco    *string `json:"no_guia_hermeco"`
	Destinatario     *string `json:"destinatario"`
	Direccion        *string `json:"direccion"`
	Telefono         *string `json:"telefono"`
	Ciudad           *string `json:"ciudad"`
	Departamento     *string `json:"departamento"`
	NroEntrega       string  `json:"nro_entrega"`
	CedulaCliente    *string `json:"cedula_cliente"`
	UnidadEmbalaje   *int64  `json:"unidad_embalaje"`
	Canal            *int64  `json:"canal"`
	TipoEmbalaje     *string `json:"tipo_embalaje"`
	NovedadDespacho  *string `json:"novedad_despacho"`
	FechaDespacho    *Date   `json:"fecha_despacho"`
	NumeroGuiaRym    string  `json:"numero_guia_rym"`
	FechaEntrega     *Date   `json:"fecha_entrega"`
	Estado           string  `json:"estado"`
	GuiaSubidaRym    *string `json:"guia_subida_rym"`
	NovedadEntrega   *string `json:"novedad_entrega"`
	Novedad1         *string `json:"novedad_1"`
	Novedad2         *string `json:"novedad_2"`
}

func (s *OffcorsShipment) Carrier() Carrier { return CarrierOffcors }
func (s *OffcorsShipment) NaturalKey() (string, string) { return s.NumeroGuiaRym, s.NroEntrega }
func (s *OffcorsShipment) TrackingNumber() string { return s.NumeroGuiaRym }
func (s *OffcorsShipment) OrderNumber() string { return s.NroEntrega }
func (s *OffcorsShipment) Status() string { return s.Estado }
func (s *OffcorsShipment) SetStatus(status string) { s.Estado = status }
func (s *OffcorsShipment) Remark() *string { return s.NovedadEntrega }

func (s *OffcorsShipment) View() TrackingView {
	novedad := s.NovedadDespacho
	if novedad == nil || *novedad == "" {
		novedad = s.NovedadEntrega
	}
	var pedido string
	if s.NoGuiaHermeco != nil {
		pedido = *s.NoGuiaHermeco
	}
	return TrackingView{
		ID:             s.ID,
		Carrier:        CarrierOffcors,
		Guia:           s.NumeroGuiaRym,
		Pedido:         pedido,
		Destinatario:   s.Destinatario,
		Direccion:      s.Direccion,
		Ciudad:         s.Ciudad,
		Departamento:   s.Departamento,
		Estado:         s.Estado,
		FechaDespacho:  s.FechaDespacho,
		FechaEntrega:   s.FechaEntrega,
		Transportadora: "Offcors",
		Servicio:       firstNonEmpty(s.Client, "Offcors"),
		Novedad:        novedad,
	}
}

// TrackingView - единый вид отправления для публичного трекинга.
type TrackingView struct {
	ID             int64   `json:"id"`
	Carrier        Carrier `json:"carrier"`
	Guia           string  `json:"guia"`
	Pedido         string  `json:"pedido"`
	Destinatario   *string `json:"destinatario"`
	Direccion      *string `json:"direccion"`
	Ciudad         *string `json:"ciudad"`
	Departamento   *string `json:"departamento"`
	Estado         string  `json:"estado"`
	FechaDespacho  *Date   `json:"fecha_despacho"`
	FechaEntrega   *Date   `json:"fecha_entrega"`
	Transportadora string  `json:"transportadora"`
	Servicio       string  `json:"servicio"`
	Novedad        *string `json:"novedad"`
}

// Tracking - ответ публичного трекинга: запись и её история, новые первыми.
type Tracking struct {
	Shipment TrackingView   `json:"shipment"`
	History  []HistoryEntry `json:"history"`
}

func firstNonEmpty(v *string, fallback string) string {
	if v != nil && *v != "" {
		return *v
	}
	return fallback
}

// StrPtr returns nil for an empty string.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
