package discovery

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery/metrics"
	"agrimarket/internal/discovery/mocks"
	"agrimarket/internal/platform/logger"
	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	fetcher *mocks.MockFetcher
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.fetcher = newMockFetcher(s.T())
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = NewService(s.fetcher, schema.Default(),
		WithMediaBaseURL("https://api.example.org"),
		WithMetrics(s.metrics),
		WithLogger(logger.Discard()),
	)
}

func (s *ServiceSuite) TestDiscover() {
	s.Run("filters the fetched collection", func() {
		s.fetcher.EXPECT().List(gomock.Any(), models.KindFarmers, "tok").Return(farmerRecords(), nil)

		snap, err := s.service.Discover(s.ctx, models.KindFarmers, models.FilterState{Search: "maize", VerifiedOnly: true}, "tok", requestcontext.DeviceDesktop)
		s.Require().NoError(err)
		s.Equal(StateLoaded, snap.State)
		s.Equal([]string{"1"}, viewIDs(snap))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Markers.WithLabelValues("farmers")))
	})

	s.Run("upstream failure degrades to an inline message", func() {
		s.fetcher.EXPECT().List(gomock.Any(), models.KindVets, "").
			Return([]models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryTransport})

		snap, err := s.service.Discover(s.ctx, models.KindVets, models.DefaultFilterState(), "", requestcontext.DeviceMobile)
		s.Require().NoError(err)
		s.Equal(StateError, snap.State)
		s.NotEmpty(snap.Err)
		s.Empty(snap.View)
		s.True(snap.Viewport.Empty)
	})

	s.Run("unknown kind", func() {
		_, err := s.service.Discover(s.ctx, "tractors", models.DefaultFilterState(), "", requestcontext.DeviceDesktop)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestOverview() {
	s.Run("loads every public kind and tolerates failures", func() {
		var mu sync.Mutex
		seen := map[models.Kind]bool{}
		s.fetcher.EXPECT().List(gomock.Any(), gomock.Any(), "").
			DoAndReturn(func(_ context.Context, kind models.Kind, _ string) ([]models.Record, error) {
				mu.Lock()
				seen[kind] = true
				mu.Unlock()
				if kind == models.KindSuppliers {
					return []models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryShape, Kind: kind}
				}
				if kind == models.KindFarmers {
					return farmerRecords(), nil
				}
				return []models.Record{}, nil
			}).Times(4)

		ov, err := s.service.Overview(s.ctx, models.DefaultFilterState(), "", requestcontext.DeviceDesktop, nil)
		s.Require().NoError(err)
		s.Len(ov.Sections, 4)
		s.False(seen[models.KindListings], "gated kinds are left out by default")

		s.Equal(models.KindFarmers, ov.Sections[0].Kind.Kind)
		s.Equal(3, ov.Sections[0].Total)
		s.Equal(2, ov.Sections[0].Matched)
		s.Len(ov.Sections[0].Markers, 1)

		s.Equal(models.KindSuppliers, ov.Sections[1].Kind.Kind)
		s.NotEmpty(ov.Sections[1].Err)
		s.Zero(ov.Sections[1].Total)

		s.Len(ov.Markers, 1)
		s.False(ov.Viewport.Empty)
	})

	s.Run("allow admits gated kinds", func() {
		s.fetcher.EXPECT().List(gomock.Any(), models.KindListings, "tok").Return([]models.Record{}, nil)

		ov, err := s.service.Overview(s.ctx, models.DefaultFilterState(), "tok", requestcontext.DeviceDesktop,
			func(k schema.Kind) bool { return k.Kind == models.KindListings })
		s.Require().NoError(err)
		s.Require().Len(ov.Sections, 1)
		s.True(ov.Viewport.Empty)
		s.NotNil(ov.Markers)
	})
}

func (s *ServiceSuite) TestDetail() {
	s.Run("resolves image and marker", func() {
		rec := farmerRecords()[0]
		rec.Image = "uploads/1.jpg"
		s.fetcher.EXPECT().Get(gomock.Any(), models.KindFarmers, "1", "").Return(rec, nil)

		d, err := s.service.Detail(s.ctx, models.KindFarmers, "1", "")
		s.Require().NoError(err)
		s.Equal("https://api.example.org/uploads/1.jpg", d.ImageURL)
		s.Require().NotNil(d.Marker)
		s.Equal(models.Position{-1.29, 36.82}, d.Marker.Position)
	})

	s.Run("not found", func() {
		s.fetcher.EXPECT().Get(gomock.Any(), models.KindFarmers, "x", "").
			Return(models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryAPI, Status: 404})

		_, err := s.service.Detail(s.ctx, models.KindFarmers, "x", "")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("upstream refuses the token", func() {
		s.fetcher.EXPECT().Get(gomock.Any(), models.KindListings, "l1", "stale").
			Return(models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryAPI, Status: 401})

		_, err := s.service.Detail(s.ctx, models.KindListings, "l1", "stale")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("transport failure", func() {
		s.fetcher.EXPECT().Get(gomock.Any(), models.KindVets, "v1", "").
			Return(models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryTransport})

		_, err := s.service.Detail(s.ctx, models.KindVets, "v1", "")
		s.True(dErrors.Is(err, dErrors.CodeUnavailable))
	})

	s.Run("empty id", func() {
		_, err := s.service.Detail(s.ctx, models.KindVets, "", "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}
