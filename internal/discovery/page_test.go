package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery/mocks"
	"agrimarket/internal/geo"
	"agrimarket/internal/platform/logger"
)

func strp(s string) *string { return &s }

func kindOf(t *testing.T, k models.Kind) schema.Kind {
	t.Helper()
	kind, ok := schema.Default().Get(k)
	require.True(t, ok)
	return kind
}

func farmerRecords() []models.Record {
	return []models.Record{
		{ID: "1", Kind: models.KindFarmers, Name: "Green Acres", Verified: true, Latitude: strp("-1.29"), Longitude: strp("36.82"),
			Attributes: map[string]any{"farmName": "Green Acres", "produces": []any{"Maize", "Beans"}}},
		{ID: "2", Kind: models.KindFarmers, Name: "Hill Top", Verified: false, Latitude: strp("0"), Longitude: strp("37"),
			Attributes: map[string]any{"farmName": "Hill Top", "produces": []any{"Tea"}}},
		{ID: "3", Kind: models.KindFarmers, Name: "Coffee Ridge", Verified: true, Latitude: strp("bad"), Longitude: strp("37"),
			Attributes: map[string]any{"farmName": "Coffee Ridge", "produces": []any{"Coffee"}}},
	}
}

func viewIDs(s Snapshot) []string {
	out := []string{}
	for _, r := range s.View {
		out = append(out, r.ID)
	}
	return out
}

func newMockFetcher(t *testing.T) *mocks.MockFetcher {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return mocks.NewMockFetcher(ctrl)
}

func newTestPage(t *testing.T, f Fetcher, opts ...PageOption) *Page {
	t.Helper()
	opts = append([]PageOption{WithPageLogger(logger.Discard())}, opts...)
	p := NewPage(kindOf(t, models.KindFarmers), f, opts...)
	t.Cleanup(p.Close)
	return p
}

func TestPageInitialState(t *testing.T) {
	p := newTestPage(t, newMockFetcher(t))

	snap := p.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.True(t, snap.Loading)
	assert.Equal(t, models.DefaultFilterState(), snap.Filter)
	assert.NotNil(t, snap.View)
	assert.Empty(t, snap.Markers)
	assert.True(t, snap.Viewport.Empty)
}

func TestPageLoadAndFilter(t *testing.T) {
	f := newMockFetcher(t)
	f.EXPECT().List(gomock.Any(), models.KindFarmers, "tok").Return(farmerRecords(), nil)
	p := newTestPage(t, f)

	snap := p.Load(context.Background(), "tok")
	assert.Equal(t, StateLoaded, snap.State)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
	assert.Len(t, snap.Records, 3)
	assert.Equal(t, []string{"1", "3"}, viewIDs(snap), "verified only by default")
	require.Len(t, snap.Markers, 1, "record 3 has no usable latitude")
	assert.Equal(t, models.Position{-1.29, 36.82}, snap.Markers[0].Position)
	assert.False(t, snap.Viewport.Empty)

	snap = p.SetFilter(models.FilterState{Search: "tea"})
	assert.Equal(t, StateFiltered, snap.State)
	assert.Equal(t, []string{"2"}, viewIDs(snap))

	snap = p.SetFilter(models.FilterState{Search: "rice", VerifiedOnly: true})
	assert.Equal(t, StateFiltered, snap.State)
	assert.Empty(t, snap.View)
	assert.True(t, snap.Viewport.Empty)
	assert.Equal(t, geo.EmptyMessage, snap.Viewport.Message)
	assert.Equal(t, geo.DefaultFitOptions().DefaultCenter, snap.Viewport.Center)
}

func TestPageFetchFailure(t *testing.T) {
	f := newMockFetcher(t)
	f.EXPECT().List(gomock.Any(), models.KindFarmers, "").
		Return([]models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryAPI, Kind: models.KindFarmers, Message: "request was not successful"})
	p := newTestPage(t, f)

	snap := p.Load(context.Background(), "")
	assert.Equal(t, StateError, snap.State)
	assert.False(t, snap.Loading)
	assert.NotNil(t, snap.Records)
	assert.Empty(t, snap.Records)
	assert.Equal(t, "request was not successful", snap.Err)
	assert.True(t, snap.Viewport.Empty)

	assert.NotPanics(t, func() {
		snap = p.SetFilter(models.FilterState{Search: "maize"})
	})
	assert.Equal(t, StateError, snap.State)
	assert.Empty(t, snap.View)
}

func TestPageFilterDuringLoadingAppliesOnArrival(t *testing.T) {
	f := newMockFetcher(t)
	f.EXPECT().List(gomock.Any(), models.KindFarmers, "").Return(farmerRecords(), nil)
	p := newTestPage(t, f)

	snap := p.SetFilter(models.FilterState{Search: "coffee"})
	assert.Equal(t, StateLoading, snap.State)

	snap = p.Load(context.Background(), "")
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, []string{"3"}, viewIDs(snap))
}

func TestPageRefetch(t *testing.T) {
	f := newMockFetcher(t)
	gomock.InOrder(
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").Return(farmerRecords()[:1], nil),
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").Return(farmerRecords(), nil),
	)
	p := newTestPage(t, f, WithInitialFilter(models.FilterState{}))

	assert.Len(t, p.Load(context.Background(), "").View, 1)
	snap := p.Load(context.Background(), "")
	assert.Equal(t, StateLoaded, snap.State)
	assert.Len(t, snap.View, 3)
}

func TestPageFailedRefetchKeepsRecords(t *testing.T) {
	f := newMockFetcher(t)
	gomock.InOrder(
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").Return(farmerRecords(), nil),
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").
			Return([]models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryTransport}),
	)
	p := newTestPage(t, f, WithInitialFilter(models.FilterState{}))

	require.Len(t, p.Load(context.Background(), "").Records, 3)
	snap := p.Load(context.Background(), "")
	assert.Equal(t, StateError, snap.State)
	assert.False(t, snap.Loading)
	assert.NotEmpty(t, snap.Err)
	assert.Len(t, snap.Records, 3)
	assert.Len(t, snap.View, 3)
}

func TestPageRecoversFromError(t *testing.T) {
	f := newMockFetcher(t)
	gomock.InOrder(
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").
			Return([]models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryTransport}),
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "").Return(farmerRecords(), nil),
	)
	p := newTestPage(t, f)

	assert.Equal(t, StateError, p.Load(context.Background(), "").State)
	snap := p.Load(context.Background(), "")
	assert.Equal(t, StateLoaded, snap.State)
	assert.Empty(t, snap.Err)
}

func TestPageNewerLoadSupersedesOlder(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newMockFetcher(t)
	entered := make(chan struct{})
	gomock.InOrder(
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "old").
			DoAndReturn(func(ctx context.Context, _ models.Kind, _ string) ([]models.Record, error) {
				close(entered)
				<-ctx.Done()
				return []models.Record{}, &fetcher.FetchError{Category: fetcher.CategoryCanceled, Underlying: ctx.Err()}
			}),
		f.EXPECT().List(gomock.Any(), models.KindFarmers, "new").Return(farmerRecords(), nil),
	)
	p := newTestPage(t, f)

	oldDone := make(chan Snapshot, 1)
	go func() { oldDone <- p.Load(context.Background(), "old") }()
	<-entered

	snap := p.Load(context.Background(), "new")
	assert.Equal(t, StateLoaded, snap.State)
	assert.Len(t, snap.Records, 3)

	select {
	case old := <-oldDone:
		assert.Equal(t, StateLoaded, old.State, "superseded load reports the current page, not its own failure")
		assert.Empty(t, old.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load did not return")
	}
	assert.Equal(t, StateLoaded, p.Snapshot().State)
}

func TestPageCloseDiscardsInFlightLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newMockFetcher(t)
	entered := make(chan struct{})
	f.EXPECT().List(gomock.Any(), models.KindFarmers, "").
		DoAndReturn(func(ctx context.Context, _ models.Kind, _ string) ([]models.Record, error) {
			close(entered)
			<-ctx.Done()
			return farmerRecords(), nil
		})
	p := newTestPage(t, f)

	done := make(chan Snapshot, 1)
	go func() { done <- p.Load(context.Background(), "") }()
	<-entered
	p.Close()

	select {
	case snap := <-done:
		assert.Equal(t, StateLoading, snap.State)
		assert.Empty(t, snap.Records)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return after close")
	}

	// closed pages neither fetch nor change
	snap := p.Load(context.Background(), "")
	assert.Equal(t, StateLoading, snap.State)
	assert.Equal(t, models.DefaultFilterState(), p.SetFilter(models.FilterState{Search: "x"}).Filter)
}
