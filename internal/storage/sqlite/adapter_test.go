package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/storage"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func batchFixture(id, community string, index int, participants ...string) *domain.ParticipantBatch {
	return &domain.ParticipantBatch{
		ID:           id,
		Community:    community,
		BatchIndex:   index,
		Participants: participants,
		CreatedAt:    time.Now(),
	}
}

func TestSaveAndGetBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved := batchFixture("b1", "knitting", 1, "alice", "bob")
	saved.MoreAvailable = true
	require.NoError(t, store.SaveBatch(ctx, saved))

	got, err := store.GetBatch(ctx, "knitting", 1)
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, "knitting", got.Community)
	assert.Equal(t, 1, got.BatchIndex)
	assert.Equal(t, []string{"alice", "bob"}, got.Participants)
	assert.True(t, got.MoreAvailable)
}

func TestGetBatchReturnsLatestForIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := batchFixture("b1", "knitting", 1, "alice")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveBatch(ctx, older))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b2", "knitting", 1, "bob")))

	got, err := store.GetBatch(ctx, "knitting", 1)
	require.NoError(t, err)
	assert.Equal(t, "b2", got.ID, "re-collecting an index supersedes the earlier record")
}

func TestGetBatchNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetBatch(context.Background(), "knitting", 99)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBatchWritesFilterBots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, batchFixture("b1", "knitting", 1, "alice", "AutoModerator")))

	got, err := store.GetBatch(ctx, "knitting", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Participants)
}

func TestCountAndMaxBatchIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CountBatches(ctx, "knitting")
	require.NoError(t, err)
	assert.Zero(t, count)

	max, err := store.MaxBatchIndex(ctx, "knitting")
	require.NoError(t, err)
	assert.Zero(t, max, "no batches means index zero, not an error")

	require.NoError(t, store.SaveBatch(ctx, batchFixture("b1", "knitting", 1, "alice")))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b2", "knitting", 3, "bob")))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b3", "gardening", 7, "carol")))

	count, err = store.CountBatches(ctx, "knitting")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	max, err = store.MaxBatchIndex(ctx, "knitting")
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}

func TestLoadAllParticipantsMergesAndDedupes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, batchFixture("b1", "knitting", 1, "alice", "bob")))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b2", "knitting", 2, "bob", "carol")))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b3", "gardening", 1, "zoe")))

	merged, err := store.LoadAllParticipants(ctx, "knitting")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, merged)
}

func TestSaveAndLatestOverlap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batchA, batchB := 1, 2
	result := &domain.OverlapResult{
		ID:              "o1",
		CommunityA:      "knitting",
		CommunityB:      "gardening",
		BatchA:          &batchA,
		BatchB:          &batchB,
		CountA:          10,
		CountB:          20,
		OverlapCount:    3,
		OverlapPercentA: 30.0,
		OverlapPercentB: 15.0,
		Overlapping:     []string{"alice", "bob", "carol"},
		MoreAvailableA:  true,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, store.SaveOverlap(ctx, result))

	got, err := store.LatestOverlap(ctx, "knitting", "gardening")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
	require.NotNil(t, got.BatchA)
	assert.Equal(t, 1, *got.BatchA)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Overlapping)
	assert.True(t, got.MoreAvailableA)
	assert.False(t, got.MoreAvailableB)

	// The pair matches in either name ordering.
	reversed, err := store.LatestOverlap(ctx, "gardening", "knitting")
	require.NoError(t, err)
	assert.Equal(t, "o1", reversed.ID)
}

func TestLatestOverlapWithNilBatchRefs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOverlap(ctx, &domain.OverlapResult{
		ID:          "o1",
		CommunityA:  "knitting",
		CommunityB:  "gardening",
		Overlapping: []string{},
		CreatedAt:   time.Now(),
	}))

	got, err := store.LatestOverlap(ctx, "knitting", "gardening")
	require.NoError(t, err)
	assert.Nil(t, got.BatchA, "all-batches results carry no batch refs")
	assert.Nil(t, got.BatchB)
}

func TestOutreachRunUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	run := &domain.OutreachRun{
		ID:               "r1",
		Subject:          "hello",
		Body:             "body",
		Total:            20,
		Processed:        10,
		Succeeded:        []string{"alice"},
		Failed:           []string{},
		DailySent:        10,
		DailyWindowStart: now,
		State:            domain.OutreachSending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.SaveOutreachRun(ctx, run))

	resume := now.Add(24 * time.Hour)
	run.Processed = 20
	run.Succeeded = append(run.Succeeded, "bob")
	run.State = domain.OutreachDailyLimitWait
	run.ResumeAt = &resume
	run.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.SaveOutreachRun(ctx, run))

	got, err := store.GetOutreachRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Processed)
	assert.Equal(t, []string{"alice", "bob"}, got.Succeeded)
	assert.Equal(t, domain.OutreachDailyLimitWait, got.State)
	require.NotNil(t, got.ResumeAt)
	assert.WithinDuration(t, resume, *got.ResumeAt, time.Second)
}

func TestLatestOutreachRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestOutreachRun(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	now := time.Now()
	for i, id := range []string{"r1", "r2"} {
		require.NoError(t, store.SaveOutreachRun(ctx, &domain.OutreachRun{
			ID:               id,
			Subject:          "hello",
			Body:             "body",
			Succeeded:        []string{},
			Failed:           []string{},
			DailyWindowStart: now,
			State:            domain.OutreachDone,
			CreatedAt:        now,
			UpdatedAt:        now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.LatestOutreachRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.ID)
}

func TestPruneBatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := batchFixture("b1", "knitting", 1, "alice")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.SaveBatch(ctx, old))
	require.NoError(t, store.SaveBatch(ctx, batchFixture("b2", "knitting", 2, "bob")))

	pruned, err := store.PruneBatches(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	count, err := store.CountBatches(ctx, "knitting")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetBatch(ctx, "knitting", 1)
	assert.True(t, apperrors.IsNotFound(err))
}
