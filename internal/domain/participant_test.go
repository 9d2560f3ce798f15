package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBot(t *testing.T) {
	assert.True(t, IsBot("AutoModerator"))
	assert.True(t, IsBot("RemindMeBot"))
	assert.True(t, IsBot("somesubreddit-ModTeam"))
	assert.True(t, IsBot(""), "deleted authors have no username")
	assert.False(t, IsBot("alice"))
	assert.False(t, IsBot("automoderator"), "the exclusion list is case-sensitive")
}

func TestFilterBotsIsIdempotent(t *testing.T) {
	input := []string{"alice", "AutoModerator", "bob", "RemindMeBot"}

	once := FilterBots(input)
	twice := FilterBots(once)

	assert.Equal(t, []string{"alice", "bob"}, once)
	assert.Equal(t, once, twice)
}

func TestParticipantSetDropsBotsAndDuplicates(t *testing.T) {
	set := ParticipantSet([]string{"alice", "alice", "AutoModerator", "bob"})

	assert.Len(t, set, 2)
	assert.Contains(t, set, "alice")
	assert.Contains(t, set, "bob")
	assert.NotContains(t, set, "AutoModerator")
}
