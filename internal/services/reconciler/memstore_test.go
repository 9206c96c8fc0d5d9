package reconciler

import (
	"context"
	"errors"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
)

type memRow struct {
	id     int64
	guia   string
	estado string
	remark *string
	client *string
}

// memStore повторяет семантику pgshipments: натуральный ключ, IS DISTINCT FROM,
// откат всей транзакции при ошибке.
type memStore struct {
	rows    map[[2]string]*memRow
	history []models.HistoryEntry
	nextID  int64

	failInsert error
	failUpdate error
}

func newMemStore() *memStore {
	return &memStore{rows: map[[2]string]*memRow{}}
}

func (s *memStore) InTx(ctx context.Context, fn func(w pgshipments.ChunkWriter) error) error {
	tx := &memTx{s: s, rows: map[[2]string]*memRow{}, nextID: s.nextID}
	for k, r := range s.rows {
		cp := *r
		tx.rows[k] = &cp
	}
	tx.history = append(tx.history, s.history...)

	if err := fn(tx); err != nil {
		return err
	}
	s.rows, s.history, s.nextID = tx.rows, tx.history, tx.nextID
	return nil
}

type memTx struct {
	s       *memStore
	rows    map[[2]string]*memRow
	history []models.HistoryEntry
	nextID  int64
}

func keyOf(rec models.Shipment) [2]string {
	a, b := rec.NaturalKey()
	return [2]string{a, b}
}

func touched(r *memRow) pgshipments.Touched {
	return pgshipments.Touched{ID: r.id, Guia: r.guia, Estado: r.estado, Remark: r.remark, Client: r.client}
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (t *memTx) InsertShipments(_ context.Context, _ *carriers.Variant, client string, recs []models.Shipment) ([]pgshipments.Touched, error) {
	if t.s.failInsert != nil {
		return nil, t.s.failInsert
	}
	var out []pgshipments.Touched
	for _, rec := range recs {
		k := keyOf(rec)
		if _, ok := t.rows[k]; ok {
			continue
		}
		t.nextID++
		r := &memRow{id: t.nextID, guia: rec.TrackingNumber(), estado: rec.Status(), remark: rec.Remark(), client: models.StrPtr(client)}
		t.rows[k] = r
		out = append(out, touched(r))
	}
	return out, nil
}

func (t *memTx) UpdateChangedShipments(_ context.Context, _ *carriers.Variant, recs []models.Shipment) ([]pgshipments.Touched, error) {
	if t.s.failUpdate != nil {
		return nil, t.s.failUpdate
	}
	last := map[[2]string]models.Shipment{}
	var order [][2]string
	for _, rec := range recs {
		k := keyOf(rec)
		if _, ok := last[k]; !ok {
			order = append(order, k)
		}
		last[k] = rec
	}

	var out []pgshipments.Touched
	for _, k := range order {
		r, ok := t.rows[k]
		if !ok {
			continue
		}
		in := last[k]
		if r.estado == in.Status() && sameText(r.remark, in.Remark()) {
			continue
		}
		r.estado, r.remark = in.Status(), in.Remark()
		out = append(out, touched(r))
	}
	return out, nil
}

func (t *memTx) OverwriteStatus(_ context.Context, _ *carriers.Variant, ids []int64, status string, remark *string) ([]pgshipments.Touched, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []pgshipments.Touched
	for _, r := range t.rows {
		if !want[r.id] {
			continue
		}
		r.estado = status
		if remark != nil {
			r.remark = remark
		}
		out = append(out, touched(r))
	}
	return out, nil
}

var errHistory = errors.New("history unavailable")

func (t *memTx) AppendHistory(_ context.Context, entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Guia == "FAIL-HISTORY" {
			return nil, errHistory
		}
		e.ID = int64(len(t.history) + 1)
		t.history = append(t.history, e)
		out = append(out, e)
	}
	return out, nil
}
