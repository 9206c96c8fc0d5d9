package messages

import (
	"time"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/google/uuid"
)

// HistoryAppended публикуется после коммита каждой записи журнала.
// Ключ сообщения - номер отслеживания, чтобы события одной посылки шли по порядку.
type HistoryAppended struct {
	EventID        string         `json:"event_id"`
	HistoryID      int64          `json:"history_id"`
	Carrier        models.Carrier `json:"carrier,omitempty"`
	Guia           string         `json:"guia"`
	Transportadora string         `json:"transportadora"`
	Estado         string         `json:"estado"`
	Ubicacion      *string        `json:"ubicacion,omitempty"`
	Novedad        *string        `json:"novedad,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func NewHistoryAppended(c models.Carrier, e models.HistoryEntry) HistoryAppended {
	return HistoryAppended{
		EventID:        uuid.NewString(),
		HistoryID:      e.ID,
		Carrier:        c,
		Guia:           e.Guia,
		Transportadora: e.Transportadora,
		Estado:         e.Estado,
		Ubicacion:      e.Ubicacion,
		Novedad:        e.Novedad,
		CreatedAt:      e.CreatedAt,
	}
}
