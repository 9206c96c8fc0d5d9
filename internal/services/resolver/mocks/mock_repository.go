package mocks

import (
	"context"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByIdentifier(ctx context.Context, v *carriers.Variant, identifier string) (models.Shipment, error) {
	args := m.Called(ctx, v, identifier)
	var rec models.Shipment
	if x := args.Get(0); x != nil {
		rec = x.(models.Shipment)
	}
	return rec, args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, v *carriers.Variant, id int64) (models.Shipment, error) {
	args := m.Called(ctx, v, id)
	var rec models.Shipment
	if x := args.Get(0); x != nil {
		rec = x.(models.Shipment)
	}
	return rec, args.Error(1)
}
