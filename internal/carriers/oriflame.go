package carriers

import "github.com/BearBump/ShipLedger/internal/models"

var Oriflame = &Variant{
	Carrier: models.CarrierOriflame,
	Label:   "Oriflame",
	Table:   "oriflame_shipments",
	Columns: []Column{
		{"guia", KindKey},
		{"destinatario", KindText},
		{"numero_pedido", KindKey},
		{"codigo_empresaria", KindText},
		{"direccion", KindText},
		{"telefono", KindText},
		{"ciudad", KindText},
		{"departamento", KindText},
		{"fecha_ingreso", KindDate},
		{"fecha_entrega", KindDate},
		{"fecha_promesa", KindDate},
		{"dias_promesa", KindInt},
		{"estado", KindText},
		{"novedad", KindText},
		{"novedad2", KindText},
	},
	KeyColumns:       [2]string{"numero_pedido", "guia"},
	LookupColumns:    [2]string{"guia", "numero_pedido"},
	TrackingColumn:   "guia",
	RemarkColumn:     "novedad",
	StatusDateColumn: "fecha_entrega",
	UpdateColumns:    []string{"estado", "novedad"},
	Statuses:         []string{models.StatusPending, models.StatusDelivered},
	DefaultStatus:    models.StatusPending,
	ExpectedHeaders: []string{
		"destinatario", "número pedido", "código empresaria/o", "dirección",
		"telefono", "ciudad", "departamento", "fecha ingreso a r&m",
		"fecha de entrega", "fecha entrega promesa", "dias promesa",
		"estado", "novedad", "novedad 2",
	},
	MissingKeyText: "Número Pedido y Guía están vacíos",
	mapRow:         mapOriflame,
	newRecord:      func() models.Shipment { return &models.OriflameShipment{} },
}

func mapOriflame(r Row) models.Shipment {
	return &models.OriflameShipment{
		Guia:             r.Key("guia", "guía", "track id"),
		Destinatario:     r.Text("destinatario", "nombre", "recipient"),
		NumeroPedido:     r.Key("número pedido", "numero pedido", "numeropedido", "pedido"),
		CodigoEmpresaria: r.Text("código empresaria/o", "codigo empresaria/o", "codigo empresario"),
		Direccion:        r.Text("dirección", "direccion", "address"),
		Telefono:         r.Text("telefono", "teléfono", "phone"),
		Ciudad:           r.Text("ciudad", "city"),
		Departamento:     r.Text("departamento", "department"),
		FechaIngreso:     r.Date("fecha ingreso a r&m", "fecha ingreso a ram", "fecha ingreso"),
		FechaEntrega:     r.Date("fecha de entrega", "fecha entrega"),
		FechaPromesa:     r.Date("fecha entrega promesa", "fecha promesa"),
		DiasPromesa:      r.Int("dias promesa", "promesa"),
		Estado:           r.TextOr(models.StatusPending, "estado", "status"),
		Novedad:          r.Text("novedad", "novedad 1", "observacion"),
		Novedad2:         r.Text("novedad 2", "novedad2", "segunda novedad"),
	}
}
