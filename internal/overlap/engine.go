package overlap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"community-overlap/internal/collector"
	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/storage"
)

// Engine computes participant overlap between two communities
type Engine interface {
	// CompareBatch collects (or loads) one batch per community and
	// intersects them. The result is persisted before it is returned.
	CompareBatch(ctx context.Context, communityA, communityB string, opts CompareOptions) (*domain.OverlapResult, error)

	// CompareAll intersects the merged participant sets of every stored
	// batch per community. No network collection is triggered.
	CompareAll(ctx context.Context, communityA, communityB string) (*domain.OverlapResult, error)
}

// CompareOptions bounds a batch comparison
type CompareOptions struct {
	StartBatchA     int // 0-based
	StartBatchB     int
	PostLimit       int
	CommentLimit    int
	TargetBatchSize int
	UseCache        bool
}

// engine implements the Engine interface
type engine struct {
	store     storage.Store
	collector collector.Collector
}

// NewEngine creates a new overlap engine
func NewEngine(store storage.Store, coll collector.Collector) Engine {
	return &engine{
		store:     store,
		collector: coll,
	}
}

// CompareBatch collects or loads one batch per side and intersects them
func (e *engine) CompareBatch(ctx context.Context, communityA, communityB string, opts CompareOptions) (*domain.OverlapResult, error) {
	batchA, err := e.batchFor(ctx, communityA, opts.StartBatchA, opts)
	if err != nil {
		return nil, err
	}
	batchB, err := e.batchFor(ctx, communityB, opts.StartBatchB, opts)
	if err != nil {
		return nil, err
	}

	indexA, indexB := batchA.BatchIndex, batchB.BatchIndex
	result := buildResult(communityA, communityB, batchA.Set(), batchB.Set())
	result.BatchA = &indexA
	result.BatchB = &indexB
	result.MoreAvailableA = batchA.MoreAvailable
	result.MoreAvailableB = batchB.MoreAvailable

	if err := e.store.SaveOverlap(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// batchFor loads a cached batch when allowed, collecting a fresh one otherwise
func (e *engine) batchFor(ctx context.Context, community string, startBatch int, opts CompareOptions) (*domain.ParticipantBatch, error) {
	if opts.UseCache {
		batch, err := e.store.GetBatch(ctx, community, startBatch+1)
		if err == nil {
			fmt.Printf("Loaded %d participants from stored batch %d of %s\n", len(batch.Participants), batch.BatchIndex, community)
			return batch, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	batch, err := e.collector.Collect(ctx, community, collector.CollectOptions{
		PostLimit:       opts.PostLimit,
		CommentLimit:    opts.CommentLimit,
		TargetBatchSize: opts.TargetBatchSize,
		StartBatch:      startBatch,
	})
	if err != nil {
		if batch == nil || len(batch.Participants) == 0 {
			return nil, err
		}
		// A partial batch is still worth keeping and comparing.
		fmt.Printf("Warning: collection for %s halted early: %v\n", community, err)
	}

	if err := e.store.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// CompareAll intersects the merged history of both communities
func (e *engine) CompareAll(ctx context.Context, communityA, communityB string) (*domain.OverlapResult, error) {
	for _, community := range []string{communityA, communityB} {
		count, err := e.store.CountBatches(ctx, community)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, apperrors.NewPreconditionError("no stored batches for " + community)
		}
	}

	allA, err := e.store.LoadAllParticipants(ctx, communityA)
	if err != nil {
		return nil, err
	}
	allB, err := e.store.LoadAllParticipants(ctx, communityB)
	if err != nil {
		return nil, err
	}

	result := buildResult(communityA, communityB, domain.ParticipantSet(allA), domain.ParticipantSet(allB))
	if err := e.store.SaveOverlap(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func buildResult(communityA, communityB string, setA, setB map[string]struct{}) *domain.OverlapResult {
	shared := domain.Intersect(setA, setB)
	return &domain.OverlapResult{
		ID:              uuid.New().String(),
		CommunityA:      communityA,
		CommunityB:      communityB,
		CountA:          len(setA),
		CountB:          len(setB),
		OverlapCount:    len(shared),
		OverlapPercentA: domain.OverlapPercent(len(shared), len(setA)),
		OverlapPercentB: domain.OverlapPercent(len(shared), len(setB)),
		Overlapping:     shared,
		CreatedAt:       time.Now(),
	}
}
