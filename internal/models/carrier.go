package models

// Carrier - код партнёра-перевозчика; у каждого своя таблица и свой формат файла.
type Carrier string

const (
	CarrierNatura   Carrier = "natura"
	CarrierOriflame Carrier = "oriflame"
	CarrierOffcors  Carrier = "offcors"
)

// Статусы, общие для всех перевозчиков.
const (
	StatusPending   = "PENDIENTE"
	StatusInTransit = "EN TRANSITO"
	StatusOnRoute   = "EN REPARTO"
	StatusDelivered = "ENTREGADO"
	StatusIncident  = "NOVEDAD"
)

// Примечания, которые пишутся в историю при массовой загрузке.
const (
	RemarkInitialLoad  = "Carga Inicial"
	RemarkStatusUpdate = "Actualización de estado"
)
