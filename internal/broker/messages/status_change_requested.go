package messages

import (
	"time"

	"github.com/BearBump/ShipLedger/internal/models"
)

// StatusChangeRequested - внешняя система просит сменить статус отправления.
// Identifier - номер отслеживания или номер заказа; Carrier пустой = искать во всех таблицах.
type StatusChangeRequested struct {
	Identifier  string         `json:"identifier"`
	Carrier     models.Carrier `json:"carrier,omitempty"`
	Status      string         `json:"status"`
	Remark      *string        `json:"remark,omitempty"`
	Location    *string        `json:"location,omitempty"`
	RequestedBy string         `json:"requested_by,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
}
