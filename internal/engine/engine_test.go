package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risseraka/matchmakr/internal/cache"
	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/savedsearch"
	"github.com/risseraka/matchmakr/internal/search"
	testutil "github.com/risseraka/matchmakr/internal/testing"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
	"github.com/risseraka/matchmakr/store"
)

// --- Test Helpers ---

func newTestEngine(t *testing.T, opts ...func(*Options)) (*Engine, *store.MemoryLoader) {
	t.Helper()
	loader := store.NewMemoryLoader()
	loader.Put("base", testutil.SampleProfiles())
	loader.Put("skills", testutil.SkillMatrixProfiles())

	o := Options{
		Loader:         loader,
		Now:            testutil.Clock,
		Cache:          cache.Config{Enabled: true, MaxCost: 1000, NumCounters: 1000},
		SuggestWorkers: 2,
	}
	for _, apply := range opts {
		apply(&o)
	}
	e, err := NewEngine(o)
	require.NoError(t, err, "Failed to create engine")
	t.Cleanup(func() { _ = e.Close() })
	return e, loader
}

// interleavedStore runs during once, right after the first saved search is read.
type interleavedStore struct {
	services.SavedSearchStore
	once   sync.Once
	during func()
}

func (s *interleavedStore) Get(ctx context.Context, key string) (model.SavedSearch, error) {
	saved, err := s.SavedSearchStore.Get(ctx, key)
	if s.during != nil {
		s.once.Do(s.during)
	}
	return saved, err
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// --- Test Cases ---

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(Options{})
	assert.Error(t, err)

	_, err = NewEngine(Options{Loader: store.NewMemoryLoader(), SearchStrategy: "fuzzy"})
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Query(ctx, "base", search.Params{"skills.name": {"Go"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.AliceID, testutil.BobID}, result.IDs())
	assert.Equal(t, 3, result.Total)

	_, err = e.Query(ctx, "missing", search.Params{})
	assert.ErrorIs(t, err, internalErrors.ErrDatasetNotFound)
	assert.Equal(t, internalErrors.KindNotFound, internalErrors.KindOf(err))
}

func TestQueryCache(t *testing.T) {
	e, loader := newTestEngine(t)
	ctx := context.Background()
	params := search.Params{"skills.name": {"go"}}

	first, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	firstID := first.QueryID
	second, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, e.Metrics().CacheRequestsTotal.WithLabelValues("hit")),
		"second query should be served from the cache")
	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, first.Query, second.Query)
	assert.NotEqual(t, first.QueryID, second.QueryID, "every response gets its own query id")
	assert.Zero(t, second.Took)

	third, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.NotEqual(t, second.QueryID, third.QueryID)
	assert.Equal(t, firstID, first.QueryID, "reissuing leaves the cached result untouched")

	// A reload publishes a new generation.
	profiles := testutil.SampleProfiles()
	profiles = append(profiles, model.Profile{
		ID:     4,
		Name:   "Dave",
		Skills: []model.Skill{{Name: "Go", EndorsementCount: 9}},
	})
	loader.Put("base", profiles)
	_, err = e.Reload(ctx, "base")
	require.NoError(t, err)

	reloaded, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, testutil.AliceID, testutil.BobID}, reloaded.IDs())
}

func TestQueryCacheSaveDuringQuery(t *testing.T) {
	saved := &interleavedStore{SavedSearchStore: savedsearch.NewMemoryStore()}
	e, _ := newTestEngine(t, func(o *Options) { o.SavedSearches = saved })
	ctx := context.Background()
	params := search.Params{"savedSearch": {"team"}}

	_, err := e.Save(ctx, "search", "team", `{"query":{"skills.name":["Rust"]}}`)
	require.NoError(t, err)

	// The query reads the old value, then a save lands before it caches.
	saved.during = func() {
		_, err := e.Save(ctx, "search", "team", `{"query":{"skills.name":["Go"]}}`)
		assert.NoError(t, err)
	}
	stale, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.CarolID}, stale.IDs())

	fresh, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.AliceID, testutil.BobID}, fresh.IDs())
	assert.Equal(t, []string{"go"}, fresh.Query[model.FieldSkills])

	again, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, fresh.IDs(), again.IDs())
	assert.Equal(t, 1.0, counterValue(t, e.Metrics().CacheRequestsTotal.WithLabelValues("hit")))
}

func TestQueryCacheAppendDuringQuery(t *testing.T) {
	saved := &interleavedStore{SavedSearchStore: savedsearch.NewMemoryStore()}
	e, _ := newTestEngine(t, func(o *Options) { o.SavedSearches = saved })
	ctx := context.Background()
	params := search.Params{"savedSearch": {"team"}}

	_, err := e.Save(ctx, "search", "team", `{"query":{"skills.name":["+Go"]}}`)
	require.NoError(t, err)

	saved.during = func() {
		assert.NoError(t, e.AppendSearch(ctx, "team", search.Params{"location": {"+Lisbon"}}))
	}
	before, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.AliceID, testutil.BobID}, before.IDs())

	after, err := e.Query(ctx, "base", params)
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.BobID}, after.IDs())
}

func TestQueryDisabledCache(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) { o.Cache = cache.Config{} })
	ctx := context.Background()

	first, err := e.Query(ctx, "base", search.Params{})
	require.NoError(t, err)
	second, err := e.Query(ctx, "base", search.Params{})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestQueryCancelled(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Dataset(context.Background(), "base")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Query(ctx, "base", search.Params{"name": {"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDatasetRegistry(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	infos, err := e.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.False(t, infos[0].Loaded)

	require.NoError(t, e.Preload(ctx, []string{"base", "skills"}))

	infos, err = e.ListDatasets(ctx)
	require.NoError(t, err)
	for _, info := range infos {
		assert.True(t, info.Loaded, info.Name)
		assert.NotZero(t, info.Generation, info.Name)
	}

	assert.Error(t, e.Preload(ctx, []string{"base", "nope"}))

	_, err = e.Dataset(ctx, "../base")
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
}

func TestConcurrentLoads(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := e.Dataset(ctx, "base")
			if err == nil && len(ds.Profiles) != 3 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSummary(t *testing.T) {
	e, _ := newTestEngine(t)

	summary, err := e.Summary(context.Background(), "base")
	require.NoError(t, err)
	assert.Equal(t, "base", summary.Name)
	assert.Equal(t, 3, summary.Counts["profiles"])
	assert.Equal(t, 2, summary.Counts["skills.name"])
	assert.Equal(t, 3, summary.Counts["location"])
}

func TestReloadAsync(t *testing.T) {
	e, loader := newTestEngine(t)

	loader.Put("base", testutil.SampleProfiles()[:1])
	jobID, err := e.ReloadAsync("base")
	require.NoError(t, err)

	job := testutil.WaitForJobCompletion(t, e.GetJobManager(), jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeReloadDataset, "base")
	require.NotNil(t, job.Progress)
	assert.Equal(t, job.Progress.Total, job.Progress.Current)

	ds, err := e.Dataset(context.Background(), "base")
	require.NoError(t, err)
	assert.Len(t, ds.Profiles, 1)

	jobID, err = e.ReloadAsync("unknown")
	require.NoError(t, err)
	job = testutil.WaitForJobCompletion(t, e.GetJobManager(), jobID, testutil.DefaultJobPollingOptions())
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "unknown")

	_, err = e.ReloadAsync("")
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
}

func TestGetProfile(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	view, err := e.GetProfile(ctx, "base", testutil.AliceID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", view.Name)

	require.Len(t, view.Skills, 1)
	endorsers := view.Skills[0].Endorsers
	require.Len(t, endorsers, 5)
	assert.Equal(t, testutil.BobID, endorsers[0].ID)
	require.NotNil(t, endorsers[0].Profile)
	assert.True(t, endorsers[0].SuperEndorser, "Bob holds Go himself")
	for _, ref := range endorsers[1:] {
		assert.Nil(t, ref.Profile, "endorser %d is not part of the dataset", ref.ID)
		assert.False(t, ref.SuperEndorser)
	}

	var friendIDs []int64
	for _, ref := range view.Relations.Friends {
		friendIDs = append(friendIDs, ref.ID)
	}
	assert.Contains(t, friendIDs, testutil.BobID)

	body, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"superEndorser":true`)
	assert.Contains(t, string(body), `,10,11,12,13]`)

	// The shared profile is untouched.
	ds, err := e.Dataset(ctx, "base")
	require.NoError(t, err)
	alice, _ := ds.Profile(testutil.AliceID)
	assert.Equal(t, []int64{testutil.BobID, 10, 11, 12, 13}, alice.Skills[0].Endorsers)

	_, err = e.GetProfile(ctx, "base", 99)
	assert.ErrorIs(t, err, internalErrors.ErrProfileNotFound)
}

func TestMapField(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	listing, err := e.MapField(ctx, "base", "skills.name", "")
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, 2, listing.Count)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, "go", listing.Items[0].Name)
	assert.Equal(t, 2, listing.Items[0].Count)

	listing, err = e.MapField(ctx, "base", "skills.name", "RU")
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "rust", listing.Items[0].Name)

	listing, err = e.MapField(ctx, "base", "skills.name", "cobol")
	require.NoError(t, err)
	assert.NotNil(t, listing.Items)
	assert.Zero(t, listing.Count)

	for _, field := range []string{"hobbies", "q", "savedSearch"} {
		_, err = e.MapField(ctx, "base", field, "")
		assert.ErrorIs(t, err, internalErrors.ErrUnknownField, field)
	}
}

func TestRelated(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("aggregates related field", func(t *testing.T) {
		listing, err := e.Related(ctx, "base", "skills.name", "Go", "positions.companyName")
		require.NoError(t, err)
		assert.Equal(t, "go", listing.Name)
		require.Len(t, listing.Items, 1)
		assert.Equal(t, RelatedItem{Name: "acme", Count: 2}, listing.Items[0])
	})

	t.Run("skills use the co-occurrence matrix", func(t *testing.T) {
		listing, err := e.Related(ctx, "skills", "skills.name", "go", "skills.name")
		require.NoError(t, err)
		require.NotEmpty(t, listing.Items)
		assert.Equal(t, RelatedItem{Name: "docker", Count: 2}, listing.Items[0])
		assert.Equal(t, len(listing.Items), listing.Count)
	})

	t.Run("unknown value", func(t *testing.T) {
		_, err := e.Related(ctx, "base", "skills.name", "cobol", "location")
		assert.ErrorIs(t, err, internalErrors.ErrValueNotFound)
		assert.Equal(t, internalErrors.KindNotFound, internalErrors.KindOf(err))
	})

	t.Run("unknown related field", func(t *testing.T) {
		_, err := e.Related(ctx, "base", "skills.name", "go", "hobbies")
		assert.ErrorIs(t, err, internalErrors.ErrUnknownField)
	})
}

func TestSkillsAndRelations(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	related, err := e.RelatedSkills(ctx, "skills", "Go")
	require.NoError(t, err)
	require.NotEmpty(t, related)
	assert.Equal(t, model.SkillCount{Name: "docker", Count: 2}, related[0])

	top, err := e.TopSkills(ctx, "skills", "docker")
	require.NoError(t, err)
	assert.NotNil(t, top)

	relations, err := e.Relations(ctx, "base")
	require.NoError(t, err)
	assert.NotEmpty(t, relations)
	for i := 1; i < len(relations); i++ {
		assert.GreaterOrEqual(t, len(relations[i-1].Network), len(relations[i].Network))
	}
}

func TestSuggest(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Suggest(context.Background(), "base", "Go")
	require.NoError(t, err)
	require.NotEmpty(t, result.Exact)
	assert.Equal(t, model.FieldSkills, result.Exact[0].Field)
	assert.Equal(t, 2, result.Exact[0].Items[0].Count)
}

func TestSavedSearches(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cached, err := e.Query(ctx, "base", search.Params{"skills.name": {"go"}})
	require.NoError(t, err)

	saved, err := e.Save(ctx, "search", "gophers", `{"query":{"skills.name":["Go"]},"description":"Go people"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, saved.Query[model.FieldSkills], "queries are stored normalized")

	after, err := e.Query(ctx, "base", search.Params{"skills.name": {"go"}})
	require.NoError(t, err)
	assert.Equal(t, cached.IDs(), after.IDs())
	assert.Equal(t, 0.0, counterValue(t, e.Metrics().CacheRequestsTotal.WithLabelValues("hit")),
		"a save invalidates cached results")

	all, err := e.SavedSearches(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Go people", all[0].Description)

	replay, err := e.SavedSearch(ctx, "base", "gophers")
	require.NoError(t, err)
	assert.Equal(t, "gophers", replay.Title)
	assert.Equal(t, 2, replay.Count)
	assert.Len(t, replay.Results, 2)

	expanded, err := e.Query(ctx, "base", search.Params{"savedSearch": {"gophers"}, "location": {"lisbon"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.BobID, testutil.AliceID}, expanded.IDs())

	require.NoError(t, e.AppendSearch(ctx, "gophers", search.Params{"location": {"Berlin"}}))
	replay, err = e.SavedSearch(ctx, "base", "gophers")
	require.NoError(t, err)
	assert.Equal(t, 3, replay.Count)
	assert.Equal(t, []string{"berlin"}, replay.Query[model.FieldLocation])

	_, err = e.SavedSearch(ctx, "base", "missing")
	assert.ErrorIs(t, err, internalErrors.ErrSavedSearchNotFound)

	t.Run("rejected saves", func(t *testing.T) {
		_, err := e.Save(ctx, "", "k", "")
		assert.ErrorIs(t, err, internalErrors.ErrMissingParameter)

		_, err = e.Save(ctx, "users", "k", `{"query":{"name":["a"]}}`)
		assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

		_, err = e.Save(ctx, "search", "k", `{"query":{"hobbies":["chess"]}}`)
		assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

		assert.ErrorIs(t, e.AppendSearch(ctx, "k", search.Params{}), internalErrors.ErrInvalidInput)
	})
}
