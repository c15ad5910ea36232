package chatsession

import "strings"

// DeriveTitle returns text cut to MaxTitleLength runes, with "..." appended
// when anything was cut.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTitleLength {
		return text
	}
	return string(runes[:MaxTitleLength]) + "..."
}

// FilterByTitle keeps the sessions whose title contains query, ignoring case.
// An empty query keeps everything.
func FilterByTitle(sessions []Session, query string) []Session {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if query == "" || strings.Contains(strings.ToLower(s.Title), query) {
			out = append(out, s)
		}
	}
	return out
}

// PartitionStarred splits sessions into starred and the rest, keeping order.
func PartitionStarred(sessions []Session) (starred, rest []Session) {
	starred = []Session{}
	rest = []Session{}
	for _, s := range sessions {
		if s.Starred {
			starred = append(starred, s)
		} else {
			rest = append(rest, s)
		}
	}
	return starred, rest
}
