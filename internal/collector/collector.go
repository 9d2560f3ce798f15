package collector

import (
	"context"

	"community-overlap/internal/domain"
	"community-overlap/internal/reddit"
)

// Platform is the abstract capability the collector needs from the content
// platform. *reddit.Session satisfies it.
type Platform interface {
	// ListContent retrieves up to limit content items under the given ordering
	ListContent(ctx context.Context, community string, ordering domain.ContentOrdering, limit int) ([]reddit.ContentItem, error)

	// ListReplyAuthors retrieves the authors of up to limit flattened replies
	ListReplyAuthors(ctx context.Context, community, itemID string, limit int) ([]string, error)
}

// Collector walks a community's content and accumulates a participant batch
type Collector interface {
	Collect(ctx context.Context, community string, opts CollectOptions) (*domain.ParticipantBatch, error)
}

// CollectOptions bounds one collection pass
type CollectOptions struct {
	PostLimit       int
	CommentLimit    int
	TargetBatchSize int // max participants per batch; <= 0 means unbounded
	StartBatch      int // 0-based; persisted batches are 1-based
}
