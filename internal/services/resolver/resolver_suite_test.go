package resolver

import (
	"context"
	"testing"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	resolvermocks "github.com/BearBump/ShipLedger/internal/services/resolver/mocks"
)

type ResolverSuite struct {
	suite.Suite

	repo *resolvermocks.MockRepository
	r    *Resolver
}

func (s *ResolverSuite) SetupTest() {
	s.repo = &resolvermocks.MockRepository{}
	s.r = New(s.repo)
}

func (s *ResolverSuite) TestProbe_FirstMatchWins() {
	rec := &models.OriflameShipment{Guia: "X1"}
	rec.ID = 4
	s.repo.On("FindByIdentifier", mock.Anything, carriers.Natura, "X1").Return(nil, pgshipments.ErrNotFound).Once()
	s.repo.On("FindByIdentifier", mock.Anything, carriers.Oriflame, "X1").Return(rec, nil).Once()

	res, err := s.r.Resolve(context.Background(), "X1", nil)
	s.Require().NoError(err)
	s.Require().Same(carriers.Oriflame, res.Variant)
	s.Require().Equal(int64(4), res.Record.Base().ID)

	// Offcors уже не спрашиваем
	s.repo.AssertNotCalled(s.T(), "FindByIdentifier", mock.Anything, carriers.Offcors, mock.Anything)
	s.repo.AssertExpectations(s.T())
}

func (s *ResolverSuite) TestProbe_NaturaShadowsLaterStores() {
	s.repo.On("FindByIdentifier", mock.Anything, carriers.Natura, "DUP").Return(&models.NaturaShipment{Guia: "DUP"}, nil).Once()

	res, err := s.r.Resolve(context.Background(), " DUP ", nil)
	s.Require().NoError(err)
	s.Require().Same(carriers.Natura, res.Variant)
	s.repo.AssertNumberOfCalls(s.T(), "FindByIdentifier", 1)
}

func (s *ResolverSuite) TestProbe_NotFoundAnywhere() {
	for _, v := range carriers.ProbeOrder() {
		s.repo.On("FindByIdentifier", mock.Anything, v, "NOPE").Return(nil, pgshipments.ErrNotFound).Once()
	}

	_, err := s.r.Resolve(context.Background(), "NOPE", nil)
	s.Require().ErrorIs(err, ErrNotFound)
	s.repo.AssertExpectations(s.T())
}

func (s *ResolverSuite) TestHinted_MissDoesNotFallBack() {
	s.repo.On("FindByIdentifier", mock.Anything, carriers.Offcors, "R1").Return(nil, pgshipments.ErrNotFound).Once()

	_, err := s.r.Resolve(context.Background(), "R1", carriers.Offcors)
	s.Require().ErrorIs(err, ErrNotFound)
	s.repo.AssertNotCalled(s.T(), "FindByIdentifier", mock.Anything, carriers.Natura, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "FindByIdentifier", mock.Anything, carriers.Oriflame, mock.Anything)
}

func (s *ResolverSuite) TestEmptyIdentifier_NoQueries() {
	_, err := s.r.Resolve(context.Background(), "   ", nil)
	s.Require().ErrorIs(err, ErrNotFound)
	s.repo.AssertNotCalled(s.T(), "FindByIdentifier", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ResolverSuite) TestStoreError_Propagates() {
	s.repo.On("FindByIdentifier", mock.Anything, carriers.Natura, "X").Return(nil, errors.New("conn reset")).Once()

	_, err := s.r.Resolve(context.Background(), "X", nil)
	s.Require().Error(err)
	s.Require().NotErrorIs(err, ErrNotFound)
}

func (s *ResolverSuite) TestResolveByID_ProbesAndHints() {
	rec := &models.OffcorsShipment{NumeroGuiaRym: "R"}
	rec.ID = 12
	s.repo.On("FindByID", mock.Anything, carriers.Natura, int64(12)).Return(nil, pgshipments.ErrNotFound).Once()
	s.repo.On("FindByID", mock.Anything, carriers.Oriflame, int64(12)).Return(nil, pgshipments.ErrNotFound).Once()
	s.repo.On("FindByID", mock.Anything, carriers.Offcors, int64(12)).Return(rec, nil).Twice()

	res, err := s.r.ResolveByID(context.Background(), 12, nil)
	s.Require().NoError(err)
	s.Require().Same(carriers.Offcors, res.Variant)

	res, err = s.r.ResolveByID(context.Background(), 12, carriers.Offcors)
	s.Require().NoError(err)
	s.Require().Equal(int64(12), res.Record.Base().ID)
	s.repo.AssertExpectations(s.T())
}

func (s *ResolverSuite) TestResolveByID_InvalidID() {
	_, err := s.r.ResolveByID(context.Background(), 0, nil)
	s.Require().ErrorIs(err, ErrNotFound)
	s.repo.AssertNotCalled(s.T(), "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}
