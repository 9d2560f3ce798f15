package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersect(t *testing.T) {
	a := ParticipantSet([]string{"alice", "bob", "carol"})
	b := ParticipantSet([]string{"bob", "carol", "dave"})

	shared := Intersect(a, b)

	assert.Equal(t, []string{"bob", "carol"}, shared)
	assert.LessOrEqual(t, len(shared), len(a))
	assert.LessOrEqual(t, len(shared), len(b))
}

func TestIntersectIsCaseSensitive(t *testing.T) {
	a := ParticipantSet([]string{"Alice"})
	b := ParticipantSet([]string{"alice"})

	assert.Empty(t, Intersect(a, b))
}

func TestOverlapPercent(t *testing.T) {
	assert.Equal(t, 33.33, OverlapPercent(1, 3))
	assert.Equal(t, 50.0, OverlapPercent(1, 2))
	assert.Equal(t, 100.0, OverlapPercent(7, 7))
	assert.Equal(t, 0.0, OverlapPercent(0, 5))
	assert.Equal(t, 0.0, OverlapPercent(0, 0), "zero denominator yields zero, not a crash")
}

// Bot accounts are excluded from both denominators and from the overlap set.
func TestOverlapScenarioWithBotAccount(t *testing.T) {
	a := ParticipantSet([]string{"alice", "bob", "AutoModerator"})
	b := ParticipantSet([]string{"bob", "carol"})

	shared := Intersect(a, b)

	assert.Equal(t, []string{"bob"}, shared)
	assert.NotContains(t, a, "AutoModerator")
	assert.Equal(t, 50.0, OverlapPercent(len(shared), len(a)))
	assert.Equal(t, 50.0, OverlapPercent(len(shared), len(b)))
}

func TestOrderingForBatch(t *testing.T) {
	assert.Equal(t, OrderingNew, OrderingForBatch(0))
	assert.Equal(t, OrderingHot, OrderingForBatch(1))
	assert.Equal(t, OrderingTopMonth, OrderingForBatch(2))
	assert.Equal(t, OrderingTopYear, OrderingForBatch(3))
	assert.Equal(t, OrderingTopAll, OrderingForBatch(4))
	assert.Equal(t, OrderingTopAll, OrderingForBatch(9))
}
