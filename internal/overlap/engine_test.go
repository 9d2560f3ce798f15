package overlap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-overlap/internal/collector"
	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
)

type fakeStore struct {
	batches  map[string][]*domain.ParticipantBatch // keyed by community
	overlaps []*domain.OverlapResult
	runs     map[string]*domain.OutreachRun
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		batches: make(map[string][]*domain.ParticipantBatch),
		runs:    make(map[string]*domain.OutreachRun),
	}
}

func (f *fakeStore) SaveBatch(ctx context.Context, batch *domain.ParticipantBatch) error {
	f.batches[batch.Community] = append(f.batches[batch.Community], batch)
	return nil
}

func (f *fakeStore) GetBatch(ctx context.Context, community string, batchIndex int) (*domain.ParticipantBatch, error) {
	for i := len(f.batches[community]) - 1; i >= 0; i-- {
		if f.batches[community][i].BatchIndex == batchIndex {
			return f.batches[community][i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("batch")
}

func (f *fakeStore) CountBatches(ctx context.Context, community string) (int, error) {
	return len(f.batches[community]), nil
}

func (f *fakeStore) MaxBatchIndex(ctx context.Context, community string) (int, error) {
	max := 0
	for _, b := range f.batches[community] {
		if b.BatchIndex > max {
			max = b.BatchIndex
		}
	}
	return max, nil
}

func (f *fakeStore) LoadAllParticipants(ctx context.Context, community string) ([]string, error) {
	union := make(map[string]struct{})
	for _, b := range f.batches[community] {
		for _, u := range b.Participants {
			union[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for u := range union {
		out = append(out, u)
	}
	return domain.FilterBots(out), nil
}

func (f *fakeStore) SaveOverlap(ctx context.Context, result *domain.OverlapResult) error {
	f.overlaps = append(f.overlaps, result)
	return nil
}

func (f *fakeStore) LatestOverlap(ctx context.Context, communityA, communityB string) (*domain.OverlapResult, error) {
	if len(f.overlaps) == 0 {
		return nil, apperrors.NewNotFoundError("overlap result")
	}
	return f.overlaps[len(f.overlaps)-1], nil
}

func (f *fakeStore) SaveOutreachRun(ctx context.Context, run *domain.OutreachRun) error {
	f.runs[run.ID] = run
	return nil
}

func (f *fakeStore) GetOutreachRun(ctx context.Context, id string) (*domain.OutreachRun, error) {
	if run, ok := f.runs[id]; ok {
		return run, nil
	}
	return nil, apperrors.NewNotFoundError("outreach run")
}

func (f *fakeStore) LatestOutreachRun(ctx context.Context) (*domain.OutreachRun, error) {
	return nil, apperrors.NewNotFoundError("outreach run")
}

func (f *fakeStore) PruneBatches(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeCollector struct {
	byCommunity map[string][]string
	calls       int
}

func (f *fakeCollector) Collect(ctx context.Context, community string, opts collector.CollectOptions) (*domain.ParticipantBatch, error) {
	f.calls++
	return &domain.ParticipantBatch{
		ID:           community + "-fresh",
		Community:    community,
		BatchIndex:   opts.StartBatch + 1,
		Participants: f.byCommunity[community],
		CreatedAt:    time.Now(),
	}, nil
}

func TestCompareBatchCollectsAndPersists(t *testing.T) {
	store := newFakeStore()
	coll := &fakeCollector{byCommunity: map[string][]string{
		"knitting":  {"alice", "bob"},
		"gardening": {"bob", "carol"},
	}}
	engine := NewEngine(store, coll)

	result, err := engine.CompareBatch(context.Background(), "knitting", "gardening", CompareOptions{
		PostLimit: 10, CommentLimit: 10, TargetBatchSize: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, coll.calls)
	assert.Equal(t, []string{"bob"}, result.Overlapping)
	assert.Equal(t, 1, result.OverlapCount)
	assert.Equal(t, 50.0, result.OverlapPercentA)
	assert.Equal(t, 50.0, result.OverlapPercentB)
	require.NotNil(t, result.BatchA)
	assert.Equal(t, 1, *result.BatchA)

	// Both fresh batches and the result were persisted.
	assert.Len(t, store.batches["knitting"], 1)
	assert.Len(t, store.batches["gardening"], 1)
	assert.Len(t, store.overlaps, 1)
}

func TestCompareBatchUsesCacheWithoutCollecting(t *testing.T) {
	store := newFakeStore()
	for _, b := range []*domain.ParticipantBatch{
		{ID: "k1", Community: "knitting", BatchIndex: 1, Participants: []string{"alice", "bob"}},
		{ID: "g1", Community: "gardening", BatchIndex: 1, Participants: []string{"bob"}},
	} {
		require.NoError(t, store.SaveBatch(context.Background(), b))
	}
	coll := &fakeCollector{}
	engine := NewEngine(store, coll)

	result, err := engine.CompareBatch(context.Background(), "knitting", "gardening", CompareOptions{
		UseCache: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, coll.calls, "a cache hit must not trigger collection")
	assert.Equal(t, []string{"bob"}, result.Overlapping)
}

func TestCompareBatchCacheMissFallsBackToCollection(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveBatch(context.Background(), &domain.ParticipantBatch{
		ID: "k1", Community: "knitting", BatchIndex: 1, Participants: []string{"alice"},
	}))
	coll := &fakeCollector{byCommunity: map[string][]string{"gardening": {"alice"}}}
	engine := NewEngine(store, coll)

	_, err := engine.CompareBatch(context.Background(), "knitting", "gardening", CompareOptions{
		UseCache: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, coll.calls, "only the missing side is collected")
}

func TestCompareAllMergesStoredBatches(t *testing.T) {
	store := newFakeStore()
	for _, b := range []*domain.ParticipantBatch{
		{ID: "k1", Community: "knitting", BatchIndex: 1, Participants: []string{"alice", "bob"}},
		{ID: "k2", Community: "knitting", BatchIndex: 2, Participants: []string{"bob", "carol"}},
		{ID: "g1", Community: "gardening", BatchIndex: 1, Participants: []string{"carol", "dave"}},
	} {
		require.NoError(t, store.SaveBatch(context.Background(), b))
	}
	engine := NewEngine(store, nil)

	result, err := engine.CompareAll(context.Background(), "knitting", "gardening")

	require.NoError(t, err)
	assert.Equal(t, 3, result.CountA)
	assert.Equal(t, 2, result.CountB)
	assert.Equal(t, []string{"carol"}, result.Overlapping)
	assert.Nil(t, result.BatchA, "merged results carry no batch refs")
	assert.Nil(t, result.BatchB)
}

func TestCompareAllRequiresStoredData(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveBatch(context.Background(), &domain.ParticipantBatch{
		ID: "k1", Community: "knitting", BatchIndex: 1, Participants: []string{"alice"},
	}))
	engine := NewEngine(store, nil)

	_, err := engine.CompareAll(context.Background(), "knitting", "gardening")

	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestCompareBatchPercentagesStayInRange(t *testing.T) {
	store := newFakeStore()
	coll := &fakeCollector{byCommunity: map[string][]string{
		"knitting":  {},
		"gardening": {"bob"},
	}}
	engine := NewEngine(store, coll)

	result, err := engine.CompareBatch(context.Background(), "knitting", "gardening", CompareOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.OverlapPercentA, "empty side divides to zero, not NaN")
	assert.Equal(t, 0.0, result.OverlapPercentB)
}
