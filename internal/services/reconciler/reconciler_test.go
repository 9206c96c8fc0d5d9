package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/audit"
	"github.com/stretchr/testify/require"
)

type countingPublisher struct {
	n int
}

func (p *countingPublisher) Publish(context.Context, string, []byte, []byte) error {
	p.n++
	return nil
}

func natura(pedido, guia, estado string, novedad *string) models.Shipment {
	return &models.NaturaShipment{Pedido: pedido, Guia: guia, Estado: estado, Novedad: novedad}
}

func newReconciler(store *memStore) (*Reconciler, *countingPublisher) {
	pub := &countingPublisher{}
	return New(store, audit.New(nil, pub, "shipment.history")), pub
}

func TestReconcile_InsertsAndLogsInitialLoad(t *testing.T) {
	store := newMemStore()
	r, pub := newReconciler(store)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "Remesas", []models.Shipment{
		natura("P1", "G1", "PENDIENTE", nil),
		natura("P2", "G2", "EN TRANSITO", nil),
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Equal(t, 0, res.Updated)
	require.Equal(t, 0, res.Unchanged)

	require.Len(t, store.history, 2)
	for _, h := range store.history {
		require.Equal(t, models.RemarkInitialLoad, *h.Novedad)
		// "Remesas" - псевдоним Natura, в журнал идёт метка перевозчика
		require.Equal(t, carriers.Natura.Label, h.Transportadora)
	}
	require.Equal(t, 2, pub.n)
}

func TestReconcile_ReplayIsIdempotent(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)
	chunk := []models.Shipment{
		natura("P1", "G1", "PENDIENTE", nil),
		natura("P2", "G2", "PENDIENTE", models.StrPtr("ok")),
	}

	_, err := r.Reconcile(context.Background(), carriers.Natura, "", chunk)
	require.NoError(t, err)
	historyBefore := len(store.history)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", chunk)
	require.NoError(t, err)
	require.Equal(t, Result{Unchanged: 2}, res)
	require.Len(t, store.history, historyBefore)
	require.Len(t, store.rows, 2)
}

func TestReconcile_StatusChangeLogsUpdate(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	_, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{natura("P1", "G1", "PENDIENTE", nil)})
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{
		natura("P1", "G1", "ENTREGADO", nil),
		natura("P2", "G2", "PENDIENTE", nil),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 0, res.Unchanged)

	last := store.history[len(store.history)-1]
	require.Equal(t, "G1", last.Guia)
	require.Equal(t, "ENTREGADO", last.Estado)
	require.Equal(t, models.RemarkStatusUpdate, *last.Novedad)
}

func TestReconcile_RemarkChangeAloneCountsAsChange(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	_, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{natura("P1", "G1", "PENDIENTE", nil)})
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{natura("P1", "G1", "PENDIENTE", models.StrPtr("Cliente ausente"))})
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
}

func TestReconcile_DuplicateKeyInChunk_LastWins(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{
		natura("P1", "G1", "PENDIENTE", nil),
		natura("P1", "G1", "EN REPARTO", nil),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, "EN REPARTO", store.rows[[2]string{"P1", "G1"}].estado)
}

func TestReconcile_PartialKeyRows(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{
		natura("P1", "", "PENDIENTE", nil),
		natura("", "G9", "PENDIENTE", nil),
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	// без guia запись в журнал не попадает
	require.Len(t, store.history, 1)
	require.Equal(t, "G9", store.history[0].Guia)
}

func TestReconcile_ChunkErrorRollsBack(t *testing.T) {
	store := newMemStore()
	r, pub := newReconciler(store)
	store.failUpdate = errors.New("deadlock detected")

	_, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{natura("P1", "G1", "PENDIENTE", nil)})
	require.Error(t, err)
	require.Empty(t, store.rows)
	require.Empty(t, store.history)
	require.Zero(t, pub.n)
}

func TestReconcile_HistoryErrorRollsBack(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	_, err := r.Reconcile(context.Background(), carriers.Natura, "", []models.Shipment{natura("P1", "FAIL-HISTORY", "PENDIENTE", nil)})
	require.ErrorIs(t, err, errHistory)
	require.Empty(t, store.rows)
}

func TestReconcile_EmptyChunk(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	res, err := r.Reconcile(context.Background(), carriers.Natura, "", nil)
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}

func TestOverwriteStatus_AppendsHistory(t *testing.T) {
	store := newMemStore()
	r, pub := newReconciler(store)

	_, err := r.Reconcile(context.Background(), carriers.Offcors, "", []models.Shipment{
		&models.OffcorsShipment{NumeroGuiaRym: "R1", NroEntrega: "E1", Estado: "PENDIENTE"},
		&models.OffcorsShipment{NumeroGuiaRym: "R2", NroEntrega: "E2", Estado: "PENDIENTE"},
	})
	require.NoError(t, err)
	pub.n = 0

	ids := []int64{store.rows[[2]string{"R1", "E1"}].id}
	touched, err := r.OverwriteStatus(context.Background(), carriers.Offcors, ids,
		models.StatusChange{Status: "NOVEDAD", Remark: models.StrPtr("Dirección errada")})
	require.NoError(t, err)
	require.Len(t, touched, 1)
	require.Equal(t, "NOVEDAD", store.rows[[2]string{"R1", "E1"}].estado)
	require.Equal(t, "PENDIENTE", store.rows[[2]string{"R2", "E2"}].estado)

	last := store.history[len(store.history)-1]
	require.Equal(t, "R1", last.Guia)
	require.Equal(t, "Dirección errada", *last.Novedad)
	require.Equal(t, 1, pub.n)
}

func TestOverwriteStatus_NoIDs(t *testing.T) {
	store := newMemStore()
	r, _ := newReconciler(store)

	touched, err := r.OverwriteStatus(context.Background(), carriers.Natura, nil, models.StatusChange{Status: "ENTREGADO"})
	require.NoError(t, err)
	require.Nil(t, touched)
}
