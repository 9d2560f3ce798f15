package domain

import (
	"math"
	"sort"
	"time"
)

// OverlapResult is the intersection of two communities' participant sets.
// BatchA/BatchB are nil when the result was computed over all merged batches
// rather than a specific batch pair.
type OverlapResult struct {
	ID              string    `json:"id"`
	CommunityA      string    `json:"community_a"`
	CommunityB      string    `json:"community_b"`
	BatchA          *int      `json:"batch_a,omitempty"`
	BatchB          *int      `json:"batch_b,omitempty"`
	CountA          int       `json:"count_a"`
	CountB          int       `json:"count_b"`
	OverlapCount    int       `json:"overlap_count"`
	OverlapPercentA float64   `json:"overlap_percent_a"`
	OverlapPercentB float64   `json:"overlap_percent_b"`
	Overlapping     []string  `json:"overlapping"`
	MoreAvailableA  bool      `json:"more_available_a"`
	MoreAvailableB  bool      `json:"more_available_b"`
	CreatedAt       time.Time `json:"created_at"`
}

// Intersect computes the shared identifiers of two participant sets.
// Identifiers are compared as opaque case-sensitive strings.
func Intersect(a, b map[string]struct{}) []string {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var shared []string
	for u := range small {
		if _, ok := large[u]; ok {
			shared = append(shared, u)
		}
	}
	sort.Strings(shared)
	return shared
}

// OverlapPercent returns overlap/total as a percentage rounded to two
// decimals, or 0 when total is zero.
func OverlapPercent(overlap, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(overlap)/float64(total)*100*100) / 100
}
