// Package level computes commenter levels from lifetime comment counts.
package level

import "fmt"

// Level is a user's commenter rank.
type Level struct {
	Level  int
	Symbol string
	Name   string
}

var thresholds = []struct {
	min    int64
	level  int
	symbol string
}{
	{1000, 7, "👑"},
	{500, 6, "🏅"},
	{200, 5, "🥇"},
	{100, 4, "🥈"},
	{50, 3, "🥉"},
	{25, 2, "🥈"},
}

// ForCommentCount maps a lifetime comment count onto a level.
// Below the lowest threshold everyone is level 1.
func ForCommentCount(count int64) Level {
	for _, t := range thresholds {
		if count >= t.min {
			return Level{Level: t.level, Symbol: t.symbol, Name: fmt.Sprintf("Level %d", t.level)}
		}
	}
	return Level{Level: 1, Symbol: "🥉", Name: "Level 1"}
}
