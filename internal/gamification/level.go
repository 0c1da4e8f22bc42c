package gamification

import "fmt"

// Level - уровень репутации
type Level struct {
	Name      string `json:"name"`
	Threshold int64  `json:"threshold"`
}

var defaultLevels = []Level{
	{Name: "newcomer", Threshold: 0},
	{Name: "citizen", Threshold: 100},
	{Name: "contributor", Threshold: 500},
	{Name: "pioneer", Threshold: 2000},
	{Name: "elder", Threshold: 10000},
	{Name: "sovereign", Threshold: 50000},
}

// DefaultLevels returns a copy of the built-in level table.
func DefaultLevels() []Level {
	return append([]Level(nil), defaultLevels...)
}

// LevelTable is an immutable, validated level table ordered by ascending
// threshold.
type LevelTable struct {
	levels []Level
}

// NewLevelTable validates levels: thresholds start at 0 and strictly
// increase. An empty slice yields the default table.
func NewLevelTable(levels []Level) (*LevelTable, error) {
	if len(levels) == 0 {
		levels = defaultLevels
	}
	if levels[0].Threshold != 0 {
		return nil, fmt.Errorf("level table must start at threshold 0")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Threshold <= levels[i-1].Threshold {
			return nil, fmt.Errorf("level %q threshold %d not above %d", levels[i].Name, levels[i].Threshold, levels[i-1].Threshold)
		}
	}
	return &LevelTable{levels: append([]Level(nil), levels...)}, nil
}

// DefaultLevelTable returns the built-in table.
func DefaultLevelTable() *LevelTable {
	return &LevelTable{levels: DefaultLevels()}
}

// Levels returns a copy of the table.
func (t *LevelTable) Levels() []Level {
	return append([]Level(nil), t.levels...)
}

func (t *LevelTable) Len() int { return len(t.levels) }

// ReputationLevel returns the highest level whose threshold does not exceed
// score. Negative scores get the first level.
func (t *LevelTable) ReputationLevel(score int64) Level {
	lvl := t.levels[0]
	for _, l := range t.levels[1:] {
		if score < l.Threshold {
			break
		}
		lvl = l
	}
	return lvl
}

// LevelProgress describes how far a score is between its level and the next.
type LevelProgress struct {
	Current   Level  `json:"current"`
	Next      *Level `json:"next,omitempty"`
	Remaining int64  `json:"remaining"`
	Percent   int    `json:"percent"`
}

// NextLevel reports progress toward the next level. At the top level Next is
// nil and Percent is 100.
func (t *LevelTable) NextLevel(score int64) LevelProgress {
	cur := t.ReputationLevel(score)
	out := LevelProgress{Current: cur, Percent: 100}
	for i, l := range t.levels {
		if l.Name != cur.Name || i+1 == len(t.levels) {
			continue
		}
		next := t.levels[i+1]
		out.Next = &next
		if score < cur.Threshold {
			score = cur.Threshold
		}
		out.Remaining = next.Threshold - score
		out.Percent = int((score - cur.Threshold) * 100 / (next.Threshold - cur.Threshold))
	}
	return out
}
