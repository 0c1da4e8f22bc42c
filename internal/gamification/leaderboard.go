package gamification

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one leaderboard row.
type Entry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
	Rank        int    `json:"rank"`
}

// Rank sorts entries by descending score and assigns rank = position.
// Equal scores keep their input order and still get distinct ranks.
// The input slice is left untouched.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// FormatScore renders a score compactly: 950, 1.2K, 3.4M, 1.1B.
func FormatScore(score int64) string {
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	units := []struct {
		div    int64
		suffix string
	}{
		{1_000_000_000, "B"},
		{1_000_000, "M"},
		{1_000, "K"},
	}
	for _, u := range units {
		if score < u.div {
			continue
		}
		whole := score / u.div
		tenth := (score % u.div) * 10 / u.div
		s := fmt.Sprintf("%d.%d", whole, tenth)
		return sign + strings.TrimSuffix(s, ".0") + u.suffix
	}
	return fmt.Sprintf("%s%d", sign, score)
}
