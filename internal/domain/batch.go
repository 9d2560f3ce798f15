package domain

import (
	"sort"
	"time"
)

// ContentOrdering selects how content items are ranked during a collection
// pass.
type ContentOrdering string

const (
	OrderingNew      ContentOrdering = "new"
	OrderingHot      ContentOrdering = "hot"
	OrderingTopMonth ContentOrdering = "top_month"
	OrderingTopYear  ContentOrdering = "top_year"
	OrderingTopAll   ContentOrdering = "top_all"
)

// OrderingForBatch maps a 0-based start batch index to an ordering.
// Successive batches deliberately resample different rankings of the same
// community so each pass surfaces a different participant subset.
func OrderingForBatch(startBatch int) ContentOrdering {
	switch startBatch {
	case 0:
		return OrderingNew
	case 1:
		return OrderingHot
	case 2:
		return OrderingTopMonth
	case 3:
		return OrderingTopYear
	default:
		return OrderingTopAll
	}
}

// ParticipantBatch is one bounded collection pass over a community.
// Batches are immutable once persisted; the bot filter is reapplied on every
// load because stored rows may pre-date additions to the exclusion list.
type ParticipantBatch struct {
	ID            string    `json:"id"`
	Community     string    `json:"community"`
	BatchIndex    int       `json:"batch_index"` // 1-based in persisted form
	Participants  []string  `json:"participants"`
	MoreAvailable bool      `json:"more_available"`
	CreatedAt     time.Time `json:"created_at"`
}

// Set returns the batch participants as a set with the bot filter applied.
func (b *ParticipantBatch) Set() map[string]struct{} {
	return ParticipantSet(b.Participants)
}

// SortedParticipants returns the filtered participants in stable order.
func (b *ParticipantBatch) SortedParticipants() []string {
	out := FilterBots(b.Participants)
	sort.Strings(out)
	return out
}
