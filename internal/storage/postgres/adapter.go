package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/storage"
)

// postgresStore implements the Store interface for PostgreSQL
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store instance
func NewPostgresStore(connURL string) (storage.Store, error) {
	db, err := sql.Open("postgres", connURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS participant_batches (
		id TEXT PRIMARY KEY,
		community TEXT NOT NULL,
		batch_index INTEGER NOT NULL,
		participants TEXT NOT NULL,
		more_available BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_community ON participant_batches(community);
	CREATE INDEX IF NOT EXISTS idx_batches_community_index ON participant_batches(community, batch_index, created_at);

	CREATE TABLE IF NOT EXISTS overlap_results (
		id TEXT PRIMARY KEY,
		community_a TEXT NOT NULL,
		community_b TEXT NOT NULL,
		batch_a INTEGER,
		batch_b INTEGER,
		count_a INTEGER NOT NULL,
		count_b INTEGER NOT NULL,
		overlap_count INTEGER NOT NULL,
		overlap_percent_a DOUBLE PRECISION NOT NULL,
		overlap_percent_b DOUBLE PRECISION NOT NULL,
		overlapping TEXT NOT NULL,
		more_available_a BOOLEAN NOT NULL DEFAULT FALSE,
		more_available_b BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overlaps_pair ON overlap_results(community_a, community_b, created_at);

	CREATE TABLE IF NOT EXISTS outreach_runs (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		total INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		succeeded TEXT NOT NULL,
		failed TEXT NOT NULL,
		daily_sent INTEGER NOT NULL,
		daily_window_start TIMESTAMPTZ NOT NULL,
		state TEXT NOT NULL,
		resume_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outreach_updated ON outreach_runs(updated_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveBatch persists a new participant batch record
func (s *postgresStore) SaveBatch(ctx context.Context, batch *domain.ParticipantBatch) error {
	participants, err := json.Marshal(domain.FilterBots(batch.Participants))
	if err != nil {
		return apperrors.NewStorageError("encoding participants", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO participant_batches (id, community, batch_index, participants, more_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batch.ID, batch.Community, batch.BatchIndex, string(participants), batch.MoreAvailable, batch.CreatedAt)
	if err != nil {
		return apperrors.NewStorageError("saving batch", err)
	}
	return nil
}

// GetBatch returns the most recent batch for (community, batchIndex)
func (s *postgresStore) GetBatch(ctx context.Context, community string, batchIndex int) (*domain.ParticipantBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, community, batch_index, participants, more_available, created_at
		FROM participant_batches
		WHERE community = $1 AND batch_index = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, community, batchIndex)

	return scanBatch(row)
}

// CountBatches returns the number of stored batches for a community
func (s *postgresStore) CountBatches(ctx context.Context, community string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM participant_batches WHERE community = $1
	`, community).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("counting batches", err)
	}
	return count, nil
}

// MaxBatchIndex returns the highest stored batch index for a community, or 0
func (s *postgresStore) MaxBatchIndex(ctx context.Context, community string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(batch_index) FROM participant_batches WHERE community = $1
	`, community).Scan(&max)
	if err != nil {
		return 0, apperrors.NewStorageError("finding max batch index", err)
	}
	return int(max.Int64), nil
}

// LoadAllParticipants merges every stored batch for a community
func (s *postgresStore) LoadAllParticipants(ctx context.Context, community string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participants FROM participant_batches WHERE community = $1
	`, community)
	if err != nil {
		return nil, apperrors.NewStorageError("loading batches", err)
	}
	defer rows.Close()

	union := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.NewStorageError("scanning batch row", err)
		}
		var participants []string
		if err := json.Unmarshal([]byte(raw), &participants); err != nil {
			return nil, apperrors.NewStorageError("decoding participants", err)
		}
		for _, u := range participants {
			union[u] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterating batches", err)
	}

	merged := make([]string, 0, len(union))
	for u := range union {
		merged = append(merged, u)
	}
	merged = domain.FilterBots(merged)
	sort.Strings(merged)
	return merged, nil
}

// SaveOverlap persists an overlap result record
func (s *postgresStore) SaveOverlap(ctx context.Context, result *domain.OverlapResult) error {
	overlapping, err := json.Marshal(result.Overlapping)
	if err != nil {
		return apperrors.NewStorageError("encoding overlap", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO overlap_results (
			id, community_a, community_b, batch_a, batch_b,
			count_a, count_b, overlap_count, overlap_percent_a, overlap_percent_b,
			overlapping, more_available_a, more_available_b, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, result.ID, result.CommunityA, result.CommunityB, result.BatchA, result.BatchB,
		result.CountA, result.CountB, result.OverlapCount, result.OverlapPercentA, result.OverlapPercentB,
		string(overlapping), result.MoreAvailableA, result.MoreAvailableB, result.CreatedAt)
	if err != nil {
		return apperrors.NewStorageError("saving overlap result", err)
	}
	return nil
}

// LatestOverlap returns the most recent result for the pair in either ordering
func (s *postgresStore) LatestOverlap(ctx context.Context, communityA, communityB string) (*domain.OverlapResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, community_a, community_b, batch_a, batch_b,
		       count_a, count_b, overlap_count, overlap_percent_a, overlap_percent_b,
		       overlapping, more_available_a, more_available_b, created_at
		FROM overlap_results
		WHERE (community_a = $1 AND community_b = $2) OR (community_a = $3 AND community_b = $4)
		ORDER BY created_at DESC
		LIMIT 1
	`, communityA, communityB, communityB, communityA)

	return scanOverlap(row)
}

// SaveOutreachRun upserts an outreach run checkpoint
func (s *postgresStore) SaveOutreachRun(ctx context.Context, run *domain.OutreachRun) error {
	succeeded, err := json.Marshal(run.Succeeded)
	if err != nil {
		return apperrors.NewStorageError("encoding success list", err)
	}
	failed, err := json.Marshal(run.Failed)
	if err != nil {
		return apperrors.NewStorageError("encoding failure list", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outreach_runs (
			id, subject, body, total, processed, succeeded, failed,
			daily_sent, daily_window_start, state, resume_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			processed = EXCLUDED.processed,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			daily_sent = EXCLUDED.daily_sent,
			daily_window_start = EXCLUDED.daily_window_start,
			state = EXCLUDED.state,
			resume_at = EXCLUDED.resume_at,
			updated_at = EXCLUDED.updated_at
	`, run.ID, run.Subject, run.Body, run.Total, run.Processed, string(succeeded), string(failed),
		run.DailySent, run.DailyWindowStart, string(run.State), run.ResumeAt, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return apperrors.NewStorageError("saving outreach run", err)
	}
	return nil
}

// GetOutreachRun retrieves a run by ID
func (s *postgresStore) GetOutreachRun(ctx context.Context, id string) (*domain.OutreachRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject, body, total, processed, succeeded, failed,
		       daily_sent, daily_window_start, state, resume_at, created_at, updated_at
		FROM outreach_runs
		WHERE id = $1
	`, id)

	return scanOutreachRun(row)
}

// LatestOutreachRun retrieves the most recently updated run
func (s *postgresStore) LatestOutreachRun(ctx context.Context) (*domain.OutreachRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject, body, total, processed, succeeded, failed,
		       daily_sent, daily_window_start, state, resume_at, created_at, updated_at
		FROM outreach_runs
		ORDER BY updated_at DESC
		LIMIT 1
	`)

	return scanOutreachRun(row)
}

// PruneBatches deletes batch records created before cutoff
func (s *postgresStore) PruneBatches(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM participant_batches WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, apperrors.NewStorageError("pruning batches", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (s *postgresStore) Close() error {
	return s.db.Close()
}

func scanBatch(row *sql.Row) (*domain.ParticipantBatch, error) {
	var batch domain.ParticipantBatch
	var raw string
	err := row.Scan(&batch.ID, &batch.Community, &batch.BatchIndex, &raw, &batch.MoreAvailable, &batch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("batch")
	}
	if err != nil {
		return nil, apperrors.NewStorageError("scanning batch", err)
	}
	var participants []string
	if err := json.Unmarshal([]byte(raw), &participants); err != nil {
		return nil, apperrors.NewStorageError("decoding participants", err)
	}
	batch.Participants = domain.FilterBots(participants)
	return &batch, nil
}

func scanOverlap(row *sql.Row) (*domain.OverlapResult, error) {
	var result domain.OverlapResult
	var raw string
	err := row.Scan(&result.ID, &result.CommunityA, &result.CommunityB, &result.BatchA, &result.BatchB,
		&result.CountA, &result.CountB, &result.OverlapCount, &result.OverlapPercentA, &result.OverlapPercentB,
		&raw, &result.MoreAvailableA, &result.MoreAvailableB, &result.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("overlap result")
	}
	if err != nil {
		return nil, apperrors.NewStorageError("scanning overlap result", err)
	}
	if err := json.Unmarshal([]byte(raw), &result.Overlapping); err != nil {
		return nil, apperrors.NewStorageError("decoding overlap", err)
	}
	return &result, nil
}

func scanOutreachRun(row *sql.Row) (*domain.OutreachRun, error) {
	var run domain.OutreachRun
	var succeeded, failed, state string
	err := row.Scan(&run.ID, &run.Subject, &run.Body, &run.Total, &run.Processed, &succeeded, &failed,
		&run.DailySent, &run.DailyWindowStart, &state, &run.ResumeAt, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("outreach run")
	}
	if err != nil {
		return nil, apperrors.NewStorageError("scanning outreach run", err)
	}
	if err := json.Unmarshal([]byte(succeeded), &run.Succeeded); err != nil {
		return nil, apperrors.NewStorageError("decoding success list", err)
	}
	if err := json.Unmarshal([]byte(failed), &run.Failed); err != nil {
		return nil, apperrors.NewStorageError("decoding failure list", err)
	}
	run.State = domain.OutreachState(state)
	return &run, nil
}
