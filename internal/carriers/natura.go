package carriers

import "github.com/BearBump/ShipLedger/internal/models"

var Natura = &Variant{
	Carrier: models.CarrierNatura,
	Label:   "Natura",
	Table:   "natura_shipments",
	Columns: []Column{
		{"transportadora", KindText},
		{"fecha_despacho", KindDate},
		{"pedido", KindKey},
		{"guia", KindKey},
		{"estado", KindText},
		{"fecha", KindDate},
		{"novedad", KindText},
		{"pe", KindText},
		{"cod_cn", KindText},
		{"nombre_cn", KindText},
		{"departamento", KindText},
		{"ciudad", KindText},
		{"direccion", KindText},
		{"telefono", KindText},
	},
	KeyColumns:       [2]string{"pedido", "guia"},
	LookupColumns:    [2]string{"guia", "pedido"},
	TrackingColumn:   "guia",
	RemarkColumn:     "novedad",
	StatusDateColumn: "fecha",
	UpdateColumns:    []string{"estado", "novedad", "fecha"},
	Statuses: []string{
		models.StatusPending, models.StatusInTransit, models.StatusOnRoute, models.StatusDelivered,
	},
	DefaultStatus: models.StatusPending,
	ExpectedHeaders: []string{
		"transportadora", "fecha despacho", "pedido", "guia", "estado",
		"fecha", "novedad", "pe", "cod cn", "nombre cn",
		"departamento", "ciudad", "direccion", "telefono",
	},
	MissingKeyText: "Pedido y Guía están vacíos",
	mapRow:         mapNatura,
	newRecord:      func() models.Shipment { return &models.NaturaShipment{} },
}

func mapNatura(r Row) models.Shipment {
	return &models.NaturaShipment{
		Transportadora: r.Text("transportadora", "transp", "empresa"),
		FechaDespacho:  r.Date("fecha despacho", "fechadespacho", "f.despacho", "fecha"),
		Pedido:         r.Key("pedido", "no. pedido", "numero pedido"),
		Guia:           r.Key("guia", "no. guia", "numero guia"),
		Estado:         r.TextOr(models.StatusPending, "estado", "status", "situacion"),
		Fecha:          r.Date("fecha", "fecha estado", "fecha status"),
		Novedad:        r.Text("novedad", "observacion", "notas"),
		PE:             r.Text("pe", "planificado", "entrega planificada"),
		CodCN:          r.Text("cod cn", "codigo cn", "cod. cn"),
		NombreCN:       r.Text("nombre cn", "nombre cliente", "cliente"),
		Departamento:   r.Text("departamento", "depto", "estado/provincia"),
		Ciudad:         r.Text("ciudad", "municipio"),
		Direccion:      r.Text("direccion", "dir", "domicilio"),
		Telefono:       r.Text("telefono", "celular", "tel"),
	}
}
