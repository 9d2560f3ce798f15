package domain

import "strings"

// knownBots is the exclusion list of automated accounts. These never count
// toward participant sets and are never messaged.
var knownBots = map[string]struct{}{
	"AutoModerator":      {},
	"BotDefense":         {},
	"RemindMeBot":        {},
	"RepostSleuthBot":    {},
	"sneakpeekbot":       {},
	"WikiTextBot":        {},
	"SaveVideo":          {},
	"savevideobot":       {},
	"TotesMessenger":     {},
	"GoodBot_BadBot":     {},
	"B0tRank":            {},
	"timee_bot":          {},
	"converter-bot":      {},
	"haikusbot":          {},
	"alphabet_order_bot": {},
}

// IsBot reports whether username is a known automated account.
func IsBot(username string) bool {
	if username == "" {
		return true
	}
	if _, ok := knownBots[username]; ok {
		return true
	}
	return strings.HasSuffix(username, "-ModTeam")
}

// FilterBots returns usernames with known automated accounts removed.
// Filtering an already-filtered slice is a no-op, so it is safe to apply
// on every load regardless of when the record was written.
func FilterBots(usernames []string) []string {
	filtered := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if !IsBot(u) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// ParticipantSet converts a username slice into a set, dropping bots and
// duplicates.
func ParticipantSet(usernames []string) map[string]struct{} {
	set := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		if !IsBot(u) {
			set[u] = struct{}{}
		}
	}
	return set
}
