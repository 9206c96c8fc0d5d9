package shipments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ShipLedger/internal/broker/messages"
	cachemocks "github.com/BearBump/ShipLedger/internal/cache/mocks"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	shipmentsmocks "github.com/BearBump/ShipLedger/internal/services/shipments/mocks"
)

var noHint = (*carriers.Variant)(nil)

type ServiceSuite struct {
	suite.Suite

	repo     *shipmentsmocks.MockRepository
	resolver *shipmentsmocks.MockResolver
	rec      *shipmentsmocks.MockReconciler
	history  *shipmentsmocks.MockHistory
	cache    *cachemocks.MockBytesCache
	svc      *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &shipmentsmocks.MockRepository{}
	s.resolver = &shipmentsmocks.MockResolver{}
	s.rec = &shipmentsmocks.MockReconciler{}
	s.history = &shipmentsmocks.MockHistory{}
	s.cache = &cachemocks.MockBytesCache{}
	s.svc = New(s.repo, s.resolver, s.rec, s.history, s.cache, time.Minute)
}

func naturaRec(id int64, pedido, guia, estado string) *models.NaturaShipment {
	r := &models.NaturaShipment{Pedido: pedido, Guia: guia, Estado: estado}
	r.ID = id
	return r
}

func (s *ServiceSuite) TestGet_DelegatesToResolver() {
	res := &resolver.Resolution{Variant: carriers.Natura, Record: naturaRec(5, "P", "G", "PENDIENTE")}
	s.resolver.On("ResolveByID", mock.Anything, int64(5), carriers.Natura).Return(res, nil).Once()

	got, err := s.svc.Get(context.Background(), 5, carriers.Natura)
	s.Require().NoError(err)
	s.Require().Same(res, got)
}

func (s *ServiceSuite) TestHistory_UsesTimeline() {
	rec := naturaRec(5, "P", "G", "PENDIENTE")
	s.resolver.On("ResolveByID", mock.Anything, int64(5), noHint).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: rec}, nil).Once()
	s.history.On("Timeline", mock.Anything, carriers.Natura, rec).
		Return([]models.HistoryEntry{{ID: 0, Guia: "G"}}, nil).Once()

	out, err := s.svc.History(context.Background(), 5, nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
}

func (s *ServiceSuite) TestCreate_Inserted() {
	created := naturaRec(11, "P1", "G1", "PENDIENTE")
	s.rec.On("Reconcile", mock.Anything, carriers.Natura, "Natura", mock.MatchedBy(func(recs []models.Shipment) bool {
		return len(recs) == 1 && recs[0].TrackingNumber() == "G1"
	})).Return(reconciler.Result{Inserted: 1, Touched: []pgshipments.Touched{{ID: 11, Guia: "G1"}}}, nil).Once()
	s.cache.On("Delete", mock.Anything, []string{"tracking:G1", "tracking:P1"}).Return(nil).Once()
	s.resolver.On("ResolveByID", mock.Anything, int64(11), carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: created}, nil).Once()

	out, err := s.svc.Create(context.Background(), CreateInput{
		Variant: carriers.Natura,
		Fields:  map[string]any{"Pedido": "P1", "Guía": "G1"},
	})
	s.Require().NoError(err)
	s.Require().True(out.Created)
	s.Require().Equal(int64(11), out.Record.Base().ID)
	s.rec.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestCreate_ExistingKeyUnchanged() {
	existing := naturaRec(3, "P1", "G1", "PENDIENTE")
	s.rec.On("Reconcile", mock.Anything, carriers.Natura, "Remesas", mock.Anything).
		Return(reconciler.Result{Unchanged: 1}, nil).Once()
	s.cache.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
	s.resolver.On("Resolve", mock.Anything, "G1", carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: existing}, nil).Once()

	out, err := s.svc.Create(context.Background(), CreateInput{
		Variant: carriers.Natura,
		Client:  "Remesas",
		Fields:  map[string]any{"pedido": "P1", "guia": "G1"},
	})
	s.Require().NoError(err)
	s.Require().False(out.Created)
	s.Require().Equal(int64(3), out.Record.Base().ID)
}

func (s *ServiceSuite) TestCreate_Validation() {
	_, err := s.svc.Create(context.Background(), CreateInput{Variant: carriers.Natura, Fields: map[string]any{"ciudad": "Cali"}})
	s.Require().ErrorIs(err, ErrMissingKey)

	_, err = s.svc.Create(context.Background(), CreateInput{Variant: carriers.Oriflame, Fields: map[string]any{"guia": "G", "estado": "EN REPARTO"}})
	s.Require().ErrorIs(err, ErrInvalidStatus)

	_, err = s.svc.Create(context.Background(), CreateInput{Fields: map[string]any{"guia": "G"}})
	s.Require().ErrorIs(err, carriers.ErrUnknownCarrier)

	s.rec.AssertNotCalled(s.T(), "Reconcile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestUpdate_RecordsDiffAndInvalidates() {
	cur := naturaRec(7, "P7", "G7", "PENDIENTE")
	after := naturaRec(7, "P7", "G7", "ENTREGADO")
	after.Novedad = models.StrPtr("Recibido por portería")

	s.resolver.On("ResolveByID", mock.Anything, int64(7), noHint).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: cur}, nil).Once()
	s.repo.On("UpdateShipment", mock.Anything, carriers.Natura, int64(7), mock.MatchedBy(func(r models.Shipment) bool {
		return r.Status() == "ENTREGADO" && *r.Remark() == "Recibido por portería"
	})).Return(nil).Once()
	s.cache.On("Delete", mock.Anything, []string{"tracking:G7", "tracking:P7", "tracking:G7", "tracking:P7"}).Return(nil).Once()
	s.resolver.On("ResolveByID", mock.Anything, int64(7), carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: after}, nil).Once()

	wantDiffs := models.FieldDiffs{
		"estado":  {Old: "PENDIENTE", New: "ENTREGADO"},
		"novedad": {Old: nil, New: "Recibido por portería"},
	}
	s.history.On("RecordChanges", mock.Anything, carriers.Natura, after, wantDiffs).
		Return(&models.HistoryEntry{ID: 1}, nil).Once()

	res, diffs, err := s.svc.Update(context.Background(), 7, nil, map[string]any{
		"estado":  "ENTREGADO",
		"novedad": "Recibido por portería",
	})
	s.Require().NoError(err)
	s.Require().Equal(wantDiffs, diffs)
	s.Require().Same(after, res.Record)
	s.repo.AssertExpectations(s.T())
	s.history.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestUpdate_NoChanges_NoWrites() {
	cur := naturaRec(7, "P7", "G7", "PENDIENTE")
	s.resolver.On("ResolveByID", mock.Anything, int64(7), carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: cur}, nil).Once()

	_, diffs, err := s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"estado": "PENDIENTE"})
	s.Require().NoError(err)
	s.Require().Empty(diffs)
	s.repo.AssertNotCalled(s.T(), "UpdateShipment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.history.AssertNotCalled(s.T(), "RecordChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestUpdate_Rejections() {
	cur := naturaRec(7, "P7", "G7", "PENDIENTE")
	s.resolver.On("ResolveByID", mock.Anything, int64(7), carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: cur}, nil)

	_, _, err := s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"estado": "PERDIDO"})
	s.Require().ErrorIs(err, ErrInvalidStatus)

	_, _, err = s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"pedido": "", "guia": ""})
	s.Require().ErrorIs(err, ErrMissingKey)

	_, _, err = s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"numero_guia_rym": "X"})
	s.Require().ErrorIs(err, ErrInvalidInput)

	_, _, err = s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"fecha": 12})
	s.Require().ErrorIs(err, ErrInvalidInput)

	s.repo.AssertNotCalled(s.T(), "UpdateShipment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestUpdate_DuplicateKey() {
	cur := naturaRec(7, "P7", "G7", "PENDIENTE")
	s.resolver.On("ResolveByID", mock.Anything, int64(7), carriers.Natura).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: cur}, nil).Once()
	s.repo.On("UpdateShipment", mock.Anything, carriers.Natura, int64(7), mock.Anything).
		Return(pgshipments.ErrDuplicateKey).Once()

	_, _, err := s.svc.Update(context.Background(), 7, carriers.Natura, map[string]any{"guia": "G8"})
	s.Require().ErrorIs(err, ErrDuplicateKey)
}

func (s *ServiceSuite) TestDelete() {
	cur := naturaRec(9, "P9", "", "PENDIENTE")
	s.resolver.On("ResolveByID", mock.Anything, int64(9), noHint).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: cur}, nil).Once()
	s.repo.On("DeleteShipment", mock.Anything, carriers.Natura, int64(9)).Return(nil).Once()
	s.cache.On("Delete", mock.Anything, []string{"tracking:P9"}).Return(errors.New("redis down")).Once()

	s.Require().NoError(s.svc.Delete(context.Background(), 9, nil))
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestDelete_NotFound() {
	s.resolver.On("ResolveByID", mock.Anything, int64(9), noHint).Return(nil, resolver.ErrNotFound).Once()

	err := s.svc.Delete(context.Background(), 9, nil)
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestBulkUpdate_ProbesFirstID() {
	s.resolver.On("ResolveByID", mock.Anything, int64(1), noHint).
		Return(&resolver.Resolution{Variant: carriers.Oriflame, Record: &models.OriflameShipment{}}, nil).Once()
	s.rec.On("OverwriteStatus", mock.Anything, carriers.Oriflame, []int64{1, 2, 3}, models.StatusChange{Status: "ENTREGADO"}).
		Return([]pgshipments.Touched{{ID: 1, Guia: "A"}, {ID: 2}}, nil).Once()
	s.cache.On("Delete", mock.Anything, []string{"tracking:A"}).Return(nil).Once()

	out, err := s.svc.BulkUpdateStatus(context.Background(), []int64{1, 2, 3}, "ENTREGADO", nil)
	s.Require().NoError(err)
	s.Require().Equal(&BulkResult{Carrier: models.CarrierOriflame, Count: 2}, out)
	s.rec.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestBulkUpdate_HintAndValidation() {
	_, err := s.svc.BulkUpdateStatus(context.Background(), nil, "ENTREGADO", nil)
	s.Require().ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.BulkUpdateStatus(context.Background(), []int64{1}, " ", nil)
	s.Require().ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.BulkUpdateStatus(context.Background(), []int64{1}, "EN TRANSITO", carriers.Offcors)
	s.Require().ErrorIs(err, ErrInvalidStatus)

	s.resolver.AssertNotCalled(s.T(), "ResolveByID", mock.Anything, mock.Anything, mock.Anything)
	s.rec.AssertNotCalled(s.T(), "OverwriteStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestApplyStatusChange() {
	rec := &models.OffcorsShipment{NumeroGuiaRym: "R1", NroEntrega: "E1", Estado: "PENDIENTE"}
	rec.ID = 4
	s.resolver.On("Resolve", mock.Anything, "R1", carriers.Offcors).
		Return(&resolver.Resolution{Variant: carriers.Offcors, Record: rec}, nil).Once()
	change := models.StatusChange{Status: "NOVEDAD", Remark: models.StrPtr("Dirección errada"), Location: models.StrPtr("Bogotá")}
	s.rec.On("OverwriteStatus", mock.Anything, carriers.Offcors, []int64{4}, change).
		Return([]pgshipments.Touched{{ID: 4, Guia: "R1"}}, nil).Once()
	s.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

	err := s.svc.ApplyStatusChange(context.Background(), messages.StatusChangeRequested{
		Identifier: "R1",
		Carrier:    models.CarrierOffcors,
		Status:     "NOVEDAD",
		Remark:     change.Remark,
		Location:   change.Location,
	})
	s.Require().NoError(err)
	s.rec.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestApplyStatusChange_Errors() {
	err := s.svc.ApplyStatusChange(context.Background(), messages.StatusChangeRequested{Identifier: "X", Carrier: "dhl", Status: "ENTREGADO"})
	s.Require().ErrorIs(err, carriers.ErrUnknownCarrier)

	s.resolver.On("Resolve", mock.Anything, "X", noHint).Return(nil, resolver.ErrNotFound).Once()
	err = s.svc.ApplyStatusChange(context.Background(), messages.StatusChangeRequested{Identifier: "X", Status: "ENTREGADO"})
	s.Require().ErrorIs(err, ErrNotFound)

	s.resolver.On("Resolve", mock.Anything, "Y", noHint).
		Return(&resolver.Resolution{Variant: carriers.Oriflame, Record: &models.OriflameShipment{Guia: "Y"}}, nil).Once()
	err = s.svc.ApplyStatusChange(context.Background(), messages.StatusChangeRequested{Identifier: "Y", Status: "NOVEDAD"})
	s.Require().ErrorIs(err, ErrInvalidStatus)
}

func (s *ServiceSuite) TestTrack_CacheHit_NoDB() {
	cached := models.Tracking{Shipment: models.TrackingView{Guia: "G1", Estado: "ENTREGADO"}}
	b, _ := json.Marshal(cached)
	s.cache.On("Get", mock.Anything, "tracking:G1").Return(b, true, nil).Once()

	out, err := s.svc.Track(context.Background(), "G1")
	s.Require().NoError(err)
	s.Require().Equal("ENTREGADO", out.Shipment.Estado)
	s.resolver.AssertNotCalled(s.T(), "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_CacheMiss_ResolvesAndStores() {
	rec := naturaRec(2, "P2", "G2", "EN REPARTO")
	s.cache.On("Get", mock.Anything, "tracking:P2").Return([]byte(nil), false, nil).Once()
	s.resolver.On("Resolve", mock.Anything, "P2", noHint).
		Return(&resolver.Resolution{Variant: carriers.Natura, Record: rec}, nil).Once()
	s.history.On("Timeline", mock.Anything, carriers.Natura, rec).
		Return([]models.HistoryEntry{{ID: 0, Guia: "G2", Estado: "EN REPARTO"}}, nil).Once()
	s.cache.On("Set", mock.Anything, "tracking:P2", mock.Anything, time.Minute).Return(errors.New("set failed")).Once()

	out, err := s.svc.Track(context.Background(), " P2 ")
	s.Require().NoError(err)
	s.Require().Equal("G2", out.Shipment.Guia)
	s.Require().Equal("P2", out.Shipment.Pedido)
	s.Require().Equal("Natura", out.Shipment.Servicio)
	s.Require().Len(out.History, 1)
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_CacheDisabled() {
	svc := New(s.repo, s.resolver, s.rec, s.history, s.cache, 0)
	s.resolver.On("Resolve", mock.Anything, "nope", noHint).Return(nil, resolver.ErrNotFound).Once()

	_, err := svc.Track(context.Background(), "nope")
	s.Require().ErrorIs(err, ErrNotFound)
	s.cache.AssertNotCalled(s.T(), "Get", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestStats_SumsCarriers() {
	s.repo.On("CountStatuses", mock.Anything, carriers.Natura).
		Return(models.StatusCounts{Carrier: models.CarrierNatura, Total: 3, Delivered: 1, Pending: 2}, nil).Once()
	s.repo.On("CountStatuses", mock.Anything, carriers.Oriflame).
		Return(models.StatusCounts{Carrier: models.CarrierOriflame, Total: 2, Delivered: 2}, nil).Once()
	s.repo.On("CountStatuses", mock.Anything, carriers.Offcors).
		Return(models.StatusCounts{Carrier: models.CarrierOffcors, Total: 1, InTransit: 1}, nil).Once()

	out, err := s.svc.Stats(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(int64(6), out.Total)
	s.Require().Equal(int64(3), out.Delivered)
	s.Require().Equal(int64(2), out.Pending)
	s.Require().Equal(int64(1), out.InTransit)
	s.Require().Len(out.Carriers, 3)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
