package outreach

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/storage"
)

// dailyWindow is the rolling window the daily cap applies to.
const dailyWindow = 24 * time.Hour

// checkpointEvery is how many processed recipients pass between checkpoints.
const checkpointEvery = 10

// Messenger is the capability the scheduler needs from the platform session.
type Messenger interface {
	SendDirectMessage(ctx context.Context, recipient, subject, body string) error
	ProbeAuthenticated(ctx context.Context) bool
}

// Scheduler drives a bounded-rate delivery loop over an ordered recipient
// list. The run is fully sequential: burst concurrency is the exact behavior
// the pacing exists to avoid, so all waits block the run.
type Scheduler struct {
	messenger Messenger
	store     storage.Store
	policy    domain.OutreachPolicy
	delay     DelayPolicy

	// Confirm gates the run before any network effect; a nil or refusing
	// callback terminates with zero sends.
	Confirm func(run *domain.OutreachRun) bool

	// Seams for tests.
	Rand  *rand.Rand
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a new outreach scheduler
func NewScheduler(messenger Messenger, store storage.Store, policy domain.OutreachPolicy) *Scheduler {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Scheduler{
		messenger: messenger,
		store:     store,
		policy:    policy,
		delay:     PolicyFor(policy, rng),
		Rand:      rng,
		Now:       time.Now,
		Sleep:     sleepCtx,
	}
}

// SetDelayPolicy replaces the inter-message delay policy.
func (s *Scheduler) SetDelayPolicy(policy DelayPolicy) {
	s.delay = policy
}

// Run delivers subject/body to each recipient in order. It returns the run
// record even on failure; the record is persisted at every checkpoint and
// unconditionally at terminal state.
func (s *Scheduler) Run(ctx context.Context, recipients []string, subject, body string) (*domain.OutreachRun, error) {
	recipients = domain.FilterBots(recipients)
	now := s.Now()

	run := &domain.OutreachRun{
		ID:               uuid.New().String(),
		Subject:          subject,
		Body:             body,
		Total:            len(recipients),
		Succeeded:        []string{},
		Failed:           []string{},
		DailyWindowStart: now,
		State:            domain.OutreachConfirming,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if s.Confirm == nil || !s.Confirm(run) {
		run.State = domain.OutreachDone
		s.checkpoint(ctx, run)
		fmt.Println("Outreach cancelled before sending.")
		return run, nil
	}

	if !s.messenger.ProbeAuthenticated(ctx) {
		run.State = domain.OutreachDone
		s.checkpoint(ctx, run)
		return run, apperrors.NewUnauthorizedError("session failed the authentication probe")
	}

	run.State = domain.OutreachSending
	for i, recipient := range recipients {
		if err := s.waitForDailyWindow(ctx, run); err != nil {
			s.finish(ctx, run)
			return run, err
		}

		err := s.messenger.SendDirectMessage(ctx, recipient, subject, body)
		run.Processed++
		if err == nil {
			run.Succeeded = append(run.Succeeded, recipient)
			run.DailySent++
		} else {
			run.Failed = append(run.Failed, recipient)
			fmt.Printf("Failed to message %s: %v\n", recipient, err)
		}
		if run.Processed%checkpointEvery == 0 {
			s.checkpoint(ctx, run)
		}

		last := i == len(recipients)-1

		if err != nil {
			if apperrors.IsRateLimited(err) || isRateLimitText(err.Error()) {
				if err := s.rateLimitBackoff(ctx, run, err.Error()); err != nil {
					s.finish(ctx, run)
					return run, err
				}
			} else if !last {
				if err := s.Sleep(ctx, s.delay.NextDelay()); err != nil {
					s.finish(ctx, run)
					return run, err
				}
			}
			continue
		}

		if last {
			break
		}

		if s.policy.BatchSize > 0 && len(run.Succeeded)%s.policy.BatchSize == 0 {
			if err := s.batchRest(ctx, run); err != nil {
				s.finish(ctx, run)
				return run, err
			}
			continue
		}

		if err := s.Sleep(ctx, s.delay.NextDelay()); err != nil {
			s.finish(ctx, run)
			return run, err
		}
	}

	s.finish(ctx, run)
	fmt.Printf("Outreach complete: %d sent, %d failed of %d\n", len(run.Succeeded), len(run.Failed), run.Total)
	return run, nil
}

// waitForDailyWindow blocks until sending may resume when the rolling daily
// cap has been reached, then resets the window.
func (s *Scheduler) waitForDailyWindow(ctx context.Context, run *domain.OutreachRun) error {
	if run.DailySent < s.policy.DailyCap {
		return nil
	}
	elapsed := s.Now().Sub(run.DailyWindowStart)
	if elapsed >= dailyWindow {
		run.DailySent = 0
		run.DailyWindowStart = s.Now()
		return nil
	}

	resume := run.DailyWindowStart.Add(dailyWindow)
	run.State = domain.OutreachDailyLimitWait
	run.ResumeAt = &resume
	s.checkpoint(ctx, run)

	fmt.Printf("Daily cap of %d reached, sleeping until %s\n", s.policy.DailyCap, resume.Format(time.RFC3339))
	if err := s.Sleep(ctx, resume.Sub(s.Now())); err != nil {
		return err
	}

	run.DailySent = 0
	run.DailyWindowStart = s.Now()
	run.ResumeAt = nil
	run.State = domain.OutreachSending
	return nil
}

// batchRest pauses between delivery batches with +-20% jitter.
func (s *Scheduler) batchRest(ctx context.Context, run *domain.OutreachRun) error {
	run.State = domain.OutreachBatchRest
	s.checkpoint(ctx, run)

	rest := time.Duration(s.policy.BatchRestMin) * time.Minute
	jittered := time.Duration(float64(rest) * (0.8 + 0.4*s.Rand.Float64()))
	fmt.Printf("Batch of %d delivered, resting %v\n", s.policy.BatchSize, jittered.Round(time.Second))
	if err := s.Sleep(ctx, jittered); err != nil {
		return err
	}

	run.State = domain.OutreachSending
	return nil
}

// rateLimitBackoff waits out a remote rate limit using the server's hint.
func (s *Scheduler) rateLimitBackoff(ctx context.Context, run *domain.OutreachRun, message string) error {
	run.State = domain.OutreachRateLimitBackoff
	s.checkpoint(ctx, run)

	wait := ParseWaitHint(message) + backoffJitter(s.Rand)
	fmt.Printf("Rate limited, backing off %v\n", wait.Round(time.Second))
	if err := s.Sleep(ctx, wait); err != nil {
		return err
	}

	run.State = domain.OutreachSending
	return nil
}

func (s *Scheduler) finish(ctx context.Context, run *domain.OutreachRun) {
	run.State = domain.OutreachDone
	run.ResumeAt = nil
	s.checkpoint(ctx, run)
}

func (s *Scheduler) checkpoint(ctx context.Context, run *domain.OutreachRun) {
	run.UpdatedAt = s.Now()
	if err := s.store.SaveOutreachRun(ctx, run); err != nil {
		// A lost checkpoint must not abort a half-finished delivery run.
		fmt.Printf("Warning: failed to checkpoint outreach run: %v\n", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
