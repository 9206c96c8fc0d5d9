package models

import "time"

type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

// UploadBatch - запись журнала загрузок (upload_batches).
type UploadBatch struct {
	ID            int64        `json:"id"`
	Filename      string       `json:"filename"`
	UploadedBy    string       `json:"uploaded_by"`
	Carrier       Carrier      `json:"carrier"`
	UploadedAt    time.Time    `json:"uploaded_at"`
	FinishedAt    *time.Time   `json:"finished_at"`
	TotalRows     int          `json:"total_rows"`
	InsertedRows  int          `json:"inserted_rows"`
	UpdatedRows   int          `json:"updated_rows"`
	DuplicateRows int          `json:"duplicate_rows"`
	ErrorRows     int          `json:"error_rows"`
	Status        UploadStatus `json:"status"`
	Errors        []string     `json:"errors"`
}

// UploadSummary - итог загрузки, возвращается клиенту и пишется в журнал.
type UploadSummary struct {
	TotalRows       int      `json:"totalRows"`
	InsertedRows    int      `json:"insertedRows"`
	UpdatedRows     int      `json:"updatedRows"`
	DuplicateRows   int      `json:"duplicateRows"`
	ErrorRows       int      `json:"errorRows"`
	Errors          []string `json:"errors"`
	DetectedHeaders []string `json:"detectedHeaders"`
}

// FinalStatus: batch fails only when nothing was persisted and something errored.
// Updated rows count as persisted, so a re-upload that only changes statuses
// stays completed even when some rows errored.
func (s UploadSummary) FinalStatus() UploadStatus {
	if s.InsertedRows == 0 && s.UpdatedRows == 0 && s.ErrorRows > 0 {
		return UploadFailed
	}
	return UploadCompleted
}

// StatusCounts - сводка статусов по перевозчику для /api/stats.
type StatusCounts struct {
	Carrier   Carrier `json:"carrier,omitempty"`
	Total     int64   `json:"total"`
	Delivered int64   `json:"entregado"`
	Failed    int64   `json:"fallido"`
	Returned  int64   `json:"devuelto"`
	Lost      int64   `json:"perdido"`
	InTransit int64   `json:"en_transito"`
	Pending   int64   `json:"pendiente"`
}

func (c *StatusCounts) Add(o StatusCounts) {
	c.Total += o.Total
	c.Delivered += o.Delivered
	c.Failed += o.Failed
	c.Returned += o.Returned
	c.Lost += o.Lost
	c.InTransit += o.InTransit
	c.Pending += o.Pending
}

// Stats - ответ /api/stats: итог и разбивка по перевозчикам.
type Stats struct {
	StatusCounts
	Carriers []StatusCounts `json:"carriers"`
}
