package storage

import (
	"context"
	"time"

	"community-overlap/internal/domain"
)

// Store is the abstract interface for the persistence layer. Batch and
// overlap records are append-only; outreach runs are upserted by ID so
// checkpoints overwrite earlier progress for the same run.
type Store interface {
	// Participant batch operations
	SaveBatch(ctx context.Context, batch *domain.ParticipantBatch) error
	GetBatch(ctx context.Context, community string, batchIndex int) (*domain.ParticipantBatch, error)
	CountBatches(ctx context.Context, community string) (int, error)
	MaxBatchIndex(ctx context.Context, community string) (int, error)

	// LoadAllParticipants merges every stored batch for a community into one
	// deduplicated participant list with the bot filter reapplied.
	LoadAllParticipants(ctx context.Context, community string) ([]string, error)

	// Overlap result operations
	SaveOverlap(ctx context.Context, result *domain.OverlapResult) error

	// LatestOverlap returns the most recent result for the community pair,
	// matching either name ordering and both batch-pair and all-batches kinds.
	LatestOverlap(ctx context.Context, communityA, communityB string) (*domain.OverlapResult, error)

	// Outreach run operations
	SaveOutreachRun(ctx context.Context, run *domain.OutreachRun) error
	GetOutreachRun(ctx context.Context, id string) (*domain.OutreachRun, error)
	LatestOutreachRun(ctx context.Context) (*domain.OutreachRun, error)

	// PruneBatches deletes batch records created before cutoff
	PruneBatches(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
