package outreach

import (
	"math/rand"
	"time"

	"community-overlap/internal/domain"
)

// DelayPolicy chooses the pause after each delivery.
type DelayPolicy interface {
	NextDelay() time.Duration
}

// UniformDelay draws uniformly from [min, max].
type UniformDelay struct {
	Min time.Duration
	Max time.Duration
	rng *rand.Rand
}

// NewUniformDelay creates a uniform delay policy
func NewUniformDelay(min, max time.Duration, rng *rand.Rand) *UniformDelay {
	return &UniformDelay{Min: min, Max: max, rng: rng}
}

func (u *UniformDelay) NextDelay() time.Duration {
	return drawBetween(u.rng, u.Min, u.Max)
}

// NaturalDelay draws uniformly from [min, max], but with 10% probability
// draws from [max, 2*max] instead, emulating irregular human pacing.
type NaturalDelay struct {
	Min time.Duration
	Max time.Duration
	rng *rand.Rand
}

// NewNaturalDelay creates a natural delay policy
func NewNaturalDelay(min, max time.Duration, rng *rand.Rand) *NaturalDelay {
	return &NaturalDelay{Min: min, Max: max, rng: rng}
}

func (n *NaturalDelay) NextDelay() time.Duration {
	if n.rng.Float64() < 0.1 {
		return drawBetween(n.rng, n.Max, 2*n.Max)
	}
	return drawBetween(n.rng, n.Min, n.Max)
}

// FixedDelay always pauses for the same duration.
type FixedDelay time.Duration

func (f FixedDelay) NextDelay() time.Duration {
	return time.Duration(f)
}

// PolicyFor builds the delay policy a pacing policy asks for.
func PolicyFor(policy domain.OutreachPolicy, rng *rand.Rand) DelayPolicy {
	min := time.Duration(policy.MinDelaySec) * time.Second
	max := time.Duration(policy.MaxDelaySec) * time.Second
	if policy.NaturalPacing {
		return NewNaturalDelay(min, max, rng)
	}
	return NewUniformDelay(min, max, rng)
}

func drawBetween(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}
