package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-overlap/internal/domain"
	"community-overlap/internal/reddit"
)

type fakePlatform struct {
	items       []reddit.ContentItem
	replies     map[string][]string
	failOnItem  string
	listErr     error
	listCalls   int
	lastOrder   domain.ContentOrdering
	replyLimits []int
}

func (f *fakePlatform) ListContent(ctx context.Context, community string, ordering domain.ContentOrdering, limit int) ([]reddit.ContentItem, error) {
	f.listCalls++
	f.lastOrder = ordering
	items := f.items
	if len(items) > limit {
		items = items[:limit]
	}
	// A mid-pagination failure returns the pages fetched so far plus the error.
	return items, f.listErr
}

func (f *fakePlatform) ListReplyAuthors(ctx context.Context, community, itemID string, limit int) ([]string, error) {
	f.replyLimits = append(f.replyLimits, limit)
	if itemID == f.failOnItem {
		return nil, errors.New("boom")
	}
	return f.replies[itemID], nil
}

func newTestCollector(p Platform) *batchCollector {
	return &batchCollector{platform: p}
}

func TestCollectExhaustsContent(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "alice"},
			{ID: "p2", Author: "bob"},
		},
		replies: map[string][]string{
			"p1": {"carol"},
			"p2": {"dave", "alice"},
		},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.False(t, batch.MoreAvailable, "a naturally exhausted walk leaves nothing more to scan")
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave"}, batch.Participants)
	assert.Equal(t, 1, batch.BatchIndex, "persisted batch indexes are 1-based")
	assert.Equal(t, domain.OrderingNew, platform.lastOrder)
}

func TestCollectStopsAtTargetBatchSize(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "alice"},
			{ID: "p2", Author: "bob"},
			{ID: "p3", Author: "carol"},
		},
		replies: map[string][]string{
			"p1": {"dave", "erin"},
		},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 3,
		StartBatch:      1,
	})

	require.NoError(t, err)
	assert.True(t, batch.MoreAvailable, "hitting the size budget means more likely remain")
	assert.Len(t, batch.Participants, 3)
	assert.Equal(t, 2, batch.BatchIndex)
	assert.Equal(t, domain.OrderingHot, platform.lastOrder)
}

func TestCollectFlagsPostBudgetHit(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "alice"},
			{ID: "p2", Author: "bob"},
			{ID: "p3", Author: "carol"},
		},
		replies: map[string][]string{},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       2,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.True(t, batch.MoreAvailable, "stopping at the post budget leaves content unscanned")
	assert.ElementsMatch(t, []string{"alice", "bob"}, batch.Participants, "the walk never crosses the post budget")
}

func TestCollectExhaustingExactPostBudget(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "alice"},
			{ID: "p2", Author: "bob"},
		},
		replies: map[string][]string{},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       2,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.False(t, batch.MoreAvailable, "a source with exactly the budgeted posts is exhausted, not limited")
}

func TestCollectPropagatesListingErrorWithPartialItems(t *testing.T) {
	platform := &fakePlatform{
		items:   []reddit.ContentItem{{ID: "p1", Author: "alice"}},
		replies: map[string][]string{"p1": {"bob"}},
		listErr: errors.New("503 mid-pagination"),
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.Error(t, err, "a listing failure must propagate even when it yielded items")
	require.NotNil(t, batch)
	assert.True(t, batch.MoreAvailable, "an interrupted walk is not an exhausted one")
	assert.ElementsMatch(t, []string{"alice", "bob"}, batch.Participants, "items fetched before the failure are still walked")
}

func TestCollectReturnsPartialBatchOnError(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "alice"},
			{ID: "p2", Author: "bob"},
		},
		replies: map[string][]string{
			"p1": {"carol"},
		},
		failOnItem: "p2",
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.Error(t, err)
	require.NotNil(t, batch)
	assert.True(t, batch.MoreAvailable)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, batch.Participants)
}

func TestCollectExcludesBots(t *testing.T) {
	platform := &fakePlatform{
		items: []reddit.ContentItem{
			{ID: "p1", Author: "AutoModerator"},
		},
		replies: map[string][]string{
			"p1": {"alice", "RemindMeBot"},
		},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, batch.Participants)
}

func TestCollectUnboundedTargetSize(t *testing.T) {
	platform := &fakePlatform{
		items:   []reddit.ContentItem{{ID: "p1", Author: "alice"}},
		replies: map[string][]string{"p1": {"bob", "carol"}},
	}

	batch, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    50,
		TargetBatchSize: 0,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, batch.Participants, "a zero size budget is unbounded, not empty")
	assert.False(t, batch.MoreAvailable)
}

func TestCollectPassesCommentLimit(t *testing.T) {
	platform := &fakePlatform{
		items:   []reddit.ContentItem{{ID: "p1", Author: "alice"}},
		replies: map[string][]string{},
	}

	_, err := newTestCollector(platform).Collect(context.Background(), "gardening", CollectOptions{
		PostLimit:       10,
		CommentLimit:    7,
		TargetBatchSize: 100,
		StartBatch:      0,
	})

	require.NoError(t, err)
	assert.Equal(t, []int{7}, platform.replyLimits)
}
