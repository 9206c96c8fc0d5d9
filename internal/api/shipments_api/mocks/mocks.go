package mocks

import (
	"context"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/stretchr/testify/mock"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, in ingest.Upload) (*ingest.Outcome, error) {
	args := m.Called(ctx, in)
	var out *ingest.Outcome
	if v := args.Get(0); v != nil {
		out = v.(*ingest.Outcome)
	}
	return out, args.Error(1)
}

func (m *MockUploader) List(ctx context.Context, limit int) ([]models.UploadBatch, error) {
	args := m.Called(ctx, limit)
	var out []models.UploadBatch
	if v := args.Get(0); v != nil {
		out = v.([]models.UploadBatch)
	}
	return out, args.Error(1)
}

type MockShipments struct {
	mock.Mock
}

func resolution(v any) *resolver.Resolution {
	if v == nil {
		return nil
	}
	return v.(*resolver.Resolution)
}

func (m *MockShipments) Get(ctx context.Context, id int64, hint *carriers.Variant) (*resolver.Resolution, error) {
	args := m.Called(ctx, id, hint)
	return resolution(args.Get(0)), args.Error(1)
}

func (m *MockShipments) History(ctx context.Context, id int64, hint *carriers.Variant) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, id, hint)
	var out []models.HistoryEntry
	if v := args.Get(0); v != nil {
		out = v.([]models.HistoryEntry)
	}
	return out, args.Error(1)
}

func (m *MockShipments) Create(ctx context.Context, in shipments.CreateInput) (*shipments.CreateResult, error) {
	args := m.Called(ctx, in)
	var out *shipments.CreateResult
	if v := args.Get(0); v != nil {
		out = v.(*shipments.CreateResult)
	}
	return out, args.Error(1)
}

func (m *MockShipments) Update(ctx context.Context, id int64, hint *carriers.Variant, fields map[string]any) (*resolver.Resolution, models.FieldDiffs, error) {
	args := m.Called(ctx, id, hint, fields)
	var diffs models.FieldDiffs
	if v := args.Get(1); v != nil {
		diffs = v.(models.FieldDiffs)
	}
	return resolution(args.Get(0)), diffs, args.Error(2)
}

func (m *MockShipments) Delete(ctx context.Context, id int64, hint *carriers.Variant) error {
	args := m.Called(ctx, id, hint)
	return args.Error(0)
}

func (m *MockShipments) BulkUpdateStatus(ctx context.Context, ids []int64, status string, hint *carriers.Variant) (*shipments.BulkResult, error) {
	args := m.Called(ctx, ids, status, hint)
	var out *shipments.BulkResult
	if v := args.Get(0); v != nil {
		out = v.(*shipments.BulkResult)
	}
	return out, args.Error(1)
}

func (m *MockShipments) Track(ctx context.Context, identifier string) (*models.Tracking, error) {
	args := m.Called(ctx, identifier)
	var out *models.Tracking
	if v := args.Get(0); v != nil {
		out = v.(*models.Tracking)
	}
	return out, args.Error(1)
}

func (m *MockShipments) Stats(ctx context.Context) (*models.Stats, error) {
	args := m.Called(ctx)
	var out *models.Stats
	if v := args.Get(0); v != nil {
		out = v.(*models.Stats)
	}
	return out, args.Error(1)
}
