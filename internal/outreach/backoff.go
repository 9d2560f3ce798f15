package outreach

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// defaultBackoff is used when a rate-limit error carries no parseable hint.
const defaultBackoff = 60 * time.Second

var waitHintPattern = regexp.MustCompile(`(?i)(\d+)\s*(minute|second)`)

// ParseWaitHint extracts a wait duration from rate-limit error text like
// "you are doing that too much. try again in 2 minutes.". It falls back to
// 60 seconds when no duration is parseable.
func ParseWaitHint(message string) time.Duration {
	m := waitHintPattern.FindStringSubmatch(message)
	if m == nil {
		return defaultBackoff
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultBackoff
	}
	if strings.EqualFold(m[2], "minute") {
		return time.Duration(n) * time.Minute
	}
	return time.Duration(n) * time.Second
}

// backoffJitter returns the extra 10-30 seconds added on top of a hinted wait.
func backoffJitter(rng *rand.Rand) time.Duration {
	return time.Duration(10+rng.Intn(21)) * time.Second
}

// isRateLimitText reports whether error text looks like a remote rate limit.
func isRateLimitText(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "ratelimit") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "doing that too much")
}
