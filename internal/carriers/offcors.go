package carriers

import "github.com/BearBump/ShipLedger/internal/models"

var Offcors = &Variant{
	Carrier: models.CarrierOffcors,
	Label:   "Offcors",
	Table:   "offcors_shipments",
	Columns: []Column{
		{"fecha", KindDate},
		{"no_cierre_despacho", KindBigInt},
		{"no_guia_hermeco", KindText},
		{"destinatario", KindText},
		{"direccion", KindText},
		{"telefono", KindText},
		{"ciudad", KindText},
		{"departamento", KindText},
		{"nro_entrega", KindKey},
		{"cedula_cliente", KindText},
		{"unidad_embalaje", KindInt},
		{"canal", KindInt},
		{"tipo_embalaje", KindText},
		{"novedad_despacho", KindText},
		{"fecha_despacho", KindDate},
		{"numero_guia_rym", KindKey},
		{"fecha_entrega", KindDate},
		{"estado", KindText},
		{"guia_subida_rym", KindText},
		{"novedad_entrega", KindText},
		{"novedad_1", KindText},
		{"novedad_2", KindText},
	},
	KeyColumns:       [2]string{"numero_guia_rym", "nro_entrega"},
	LookupColumns:    [2]string{"numero_guia_rym", "no_guia_hermeco"},
	TrackingColumn:   "numero_guia_rym",
	RemarkColumn:     "novedad_entrega",
	StatusDateColumn: "fecha_entrega",
	UpdateColumns:    []string{"estado", "novedad_entrega"},
	Statuses:         []string{models.StatusPending, models.StatusDelivered, models.StatusIncident},
	DefaultStatus:    models.StatusPending,
	ExpectedHeaders: []string{
		"fecha", "no_cierre_despacho", "no_guia_hermeco", "destinatario", "direccion",
		"telefono", "ciudad", "departamento", "nro_entrega", "cedula_cliente",
		"unidad_embalaje", "canal", "tipo_embalaje", "novedad_despacho", "fecha_despacho",
		"numero_guia_rym", "fecha_entrega", "estado", "guia_subida_rym", "novedad_entrega",
		"novedad_1", "novedad_2",
	},
	MissingKeyText: "Guía RYM y Nro Entrega están vacíos",
	mapRow:         mapOffcors,
	newRecord:      func() models.Shipment { return &models.OffcorsShipment{} },
}

func mapOffcors(r Row) models.Shipment {
	return &models.OffcorsShipment{
		Fecha:            r.Date("fecha"),
		NoCierreDespacho: r.Digits("no_cierre_despacho", "cierre", "nro cierre"),
		NoGuiaHermeco:    r.Text("no_guia_hermeco", "guia hermeco"),
		Destinatario:     r.Text("destinatario", "nombre"),
		Direccion:        r.Text("direccion"),
		Telefono:         r.Text("telefono", "celular"),
		Ciudad:           r.Text("ciudad"),
		Departamento:     r.Text("departamento", "depto"),
		NroEntrega:       r.DigitString("nro_entrega", "numero entrega", "entrega"),
		CedulaCliente:    r.Text("cedula_cliente", "cedula", "nit"),
		UnidadEmbalaje:   r.Int("unidad_embalaje", "unidades", "embalaje"),
		Canal:            r.Int("canal"),
		TipoEmbalaje:     r.Text("tipo_embalaje"),
		NovedadDespacho:  r.Text("novedad_despacho"),
		FechaDespacho:    r.Date("fecha_despacho"),
		NumeroGuiaRym:    r.Key("numero_guia_rym", "guia rym", "numero guia rym"),
		FechaEntrega:     r.Date("fecha_entrega"),
		Estado:           r.TextOr(models.StatusPending, "estado"),
		GuiaSubidaRym:    models.StrPtr(r.TextOr("NO", "guia_subida_rym")),
		NovedadEntrega:   r.Text("novedad_entrega"),
		Novedad1:         r.Text("novedad_1"),
		Novedad2:         r.Text("novedad_2"),
	}
}
