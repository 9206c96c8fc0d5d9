package mocks

import (
	"context"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpdateShipment(ctx context.Context, v *carriers.Variant, id int64, rec models.Shipment) error {
	args := m.Called(ctx, v, id, rec)
	return args.Error(0)
}

func (m *MockRepository) DeleteShipment(ctx context.Context, v *carriers.Variant, id int64) error {
	args := m.Called(ctx, v, id)
	return args.Error(0)
}

func (m *MockRepository) CountStatuses(ctx context.Context, v *carriers.Variant) (models.StatusCounts, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(models.StatusCounts), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, identifier string, hint *carriers.Variant) (*resolver.Resolution, error) {
	args := m.Called(ctx, identifier, hint)
	var res *resolver.Resolution
	if v := args.Get(0); v != nil {
		res = v.(*resolver.Resolution)
	}
	return res, args.Error(1)
}

func (m *MockResolver) ResolveByID(ctx context.Context, id int64, hint *carriers.Variant) (*resolver.Resolution, error) {
	args := m.Called(ctx, id, hint)
	var res *resolver.Resolution
	if v := args.Get(0); v != nil {
		res = v.(*resolver.Resolution)
	}
	return res, args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, v *carriers.Variant, client string, records []models.Shipment) (reconciler.Result, error) {
	args := m.Called(ctx, v, client, records)
	return args.Get(0).(reconciler.Result), args.Error(1)
}

func (m *MockReconciler) OverwriteStatus(ctx context.Context, v *carriers.Variant, ids []int64, change models.StatusChange) ([]pgshipments.Touched, error) {
	args := m.Called(ctx, v, ids, change)
	var out []pgshipments.Touched
	if x := args.Get(0); x != nil {
		out = x.([]pgshipments.Touched)
	}
	return out, args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) RecordChanges(ctx context.Context, v *carriers.Variant, rec models.Shipment, diffs models.FieldDiffs) (*models.HistoryEntry, error) {
	args := m.Called(ctx, v, rec, diffs)
	var e *models.HistoryEntry
	if x := args.Get(0); x != nil {
		e = x.(*models.HistoryEntry)
	}
	return e, args.Error(1)
}

func (m *MockHistory) Timeline(ctx context.Context, v *carriers.Variant, rec models.Shipment) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, v, rec)
	var out []models.HistoryEntry
	if x := args.Get(0); x != nil {
		out = x.([]models.HistoryEntry)
	}
	return out, args.Error(1)
}
