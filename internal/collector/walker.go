package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
)

// itemDelay is the fixed pause between content items, a fair-use courtesy on
// top of the session's own rate limiting.
const itemDelay = 500 * time.Millisecond

// batchCollector implements Collector against a Platform
type batchCollector struct {
	platform Platform
	delay    time.Duration
}

// New creates a new collector backed by the given platform session
func New(platform Platform) Collector {
	return &batchCollector{
		platform: platform,
		delay:    itemDelay,
	}
}

// Collect walks content items under the ordering selected by the start batch
// index, recording item authors and reply authors until a budget is hit or
// the content is exhausted. MoreAvailable is set whenever the walk stopped
// for any reason other than running out of content: a budget limit, a
// platform failure, or cancellation.
//
// A platform failure mid-walk aborts the walk but still returns the batch
// accumulated so far alongside a collection error; callers should not treat
// any returned batch as proof of an exhaustive census.
func (c *batchCollector) Collect(ctx context.Context, community string, opts CollectOptions) (*domain.ParticipantBatch, error) {
	ordering := domain.OrderingForBatch(opts.StartBatch)
	fmt.Printf("Collecting batch %d of participants from %s (%s)...\n", opts.StartBatch+1, community, ordering)

	participants := make(map[string]struct{})
	batch := &domain.ParticipantBatch{
		ID:         uuid.New().String(),
		Community:  community,
		BatchIndex: opts.StartBatch + 1,
		CreatedAt:  time.Now(),
	}

	finish := func(more bool, err error) (*domain.ParticipantBatch, error) {
		batch.Participants = setToSlice(participants)
		batch.MoreAvailable = more
		fmt.Printf("Finished batch %d: found %d unique participants in %s\n", batch.BatchIndex, len(batch.Participants), community)
		return batch, err
	}

	// A non-positive size budget means unbounded; only the post budget and
	// the content itself limit the walk then.
	sizeBudgetHit := func() bool {
		return opts.TargetBatchSize > 0 && len(participants) >= opts.TargetBatchSize
	}

	// One item past the post budget distinguishes "source exhausted" from
	// "budget reached with content left over".
	items, listErr := c.platform.ListContent(ctx, community, ordering, opts.PostLimit+1)
	if listErr != nil && len(items) == 0 {
		return finish(true, apperrors.NewCollectionError("listing content for "+community, listErr))
	}
	postBudgetHit := len(items) > opts.PostLimit
	if postBudgetHit {
		items = items[:opts.PostLimit]
	}

	for i, item := range items {
		if item.Author != "" && !domain.IsBot(item.Author) {
			participants[item.Author] = struct{}{}
		}
		if sizeBudgetHit() {
			return finish(true, nil)
		}

		authors, err := c.platform.ListReplyAuthors(ctx, community, item.ID, opts.CommentLimit)
		if err != nil {
			return finish(true, apperrors.NewCollectionError("listing replies in "+community, err))
		}
		for _, a := range authors {
			if !domain.IsBot(a) {
				participants[a] = struct{}{}
			}
			if sizeBudgetHit() {
				return finish(true, nil)
			}
		}

		if (i+1)%10 == 0 {
			fmt.Printf("Processed %d posts, found %d unique participants\n", i+1, len(participants))
		}

		if c.delay > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return finish(true, ctx.Err())
			case <-time.After(c.delay):
			}
		}
	}

	// A listing that failed mid-pagination still yielded items worth walking,
	// but the walk was interrupted, not exhausted.
	if listErr != nil {
		return finish(true, apperrors.NewCollectionError("listing content for "+community, listErr))
	}
	return finish(postBudgetHit, nil)
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}
