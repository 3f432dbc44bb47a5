package history

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"codenames/pkg/game"
)

// Reconstruct returns the board as it stood after the first k log lines.
// k is clamped to the log length; the input cards are not modified.
func Reconstruct(cards []game.Tile, log []string, k int) []game.Tile {
	board := make([]game.Tile, len(cards))
	for i, c := range cards {
		board[i] = game.Tile{Word: c.Word, Team: c.Team}
	}
	if k > len(log) {
		k = len(log)
	}
	for _, line := range log[:max(k, 0)] {
		_, word, ok := game.ParseGuessLine(line)
		if !ok {
			continue
		}
		for i := range board {
			if strings.EqualFold(board[i].Word, word) {
				board[i].Revealed = true
				break
			}
		}
	}
	return board
}

// Step is one entry of a replay.
type Step struct {
	Index     int                  `json:"index"`
	Line      string               `json:"line"`
	Board     []game.Tile          `json:"board"`
	Reasoning *game.ReasoningEntry `json:"reasoning,omitempty"`
}

// Replay walks a record line by line. Reasoning is attached on a best effort
// basis; a missing match is not an error.
func Replay(r *Record) []Step {
	steps := make([]Step, 0, len(r.Log))
	cursor := 0
	for i, line := range r.Log {
		step := Step{
			Index: i + 1,
			Line:  line,
			Board: Reconstruct(r.Cards, r.Log, i+1),
		}
		if idx, ok := CorrelateReasoning(line, r.ReasoningLog, cursor); ok {
			entry := r.ReasoningLog[idx]
			step.Reasoning = &entry
			cursor = idx
			if strings.HasPrefix(entry.Action, "Clue:") {
				cursor = idx + 1
			}
		}
		steps = append(steps, step)
	}
	return steps
}

// CorrelateReasoning finds the first reasoning entry at or after from that
// explains a log line. Clue lines match "Clue: WORD N" entries of the same
// team; guess lines match the guess plan that names the word.
func CorrelateReasoning(line string, entries []game.ReasoningEntry, from int) (int, bool) {
	var team game.Team
	var want func(game.ReasoningEntry) bool

	if t, clue, ok := game.ParseClueLine(line); ok {
		team = t
		action := fmt.Sprintf("Clue: %s %d", clue.Word, clue.Number)
		want = func(e game.ReasoningEntry) bool { return strings.EqualFold(e.Action, action) }
	} else if t, word, ok := game.ParseGuessLine(line); ok {
		team = t
		want = func(e game.ReasoningEntry) bool {
			return slices.ContainsFunc(planWords(e.Action), func(w string) bool {
				return strings.EqualFold(w, word)
			})
		}
	} else {
		return 0, false
	}

	for i := max(from, 0); i < len(entries); i++ {
		e := entries[i]
		if !strings.HasPrefix(strings.ToUpper(e.Role), string(team)) {
			continue
		}
		if want(e) {
			return i, true
		}
	}
	return 0, false
}

var quotedWordRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)

// planWords returns the words of a "Guess Plan: [...]" action. Plans are
// written with quoted words; older records hold bare space separated words.
func planWords(action string) []string {
	rest, ok := strings.CutPrefix(action, "Guess Plan:")
	if !ok {
		return nil
	}
	rest = strings.TrimSpace(rest)
	if quoted := quotedWordRe.FindAllString(rest, -1); len(quoted) > 0 {
		words := make([]string, 0, len(quoted))
		for _, q := range quoted {
			if w, err := strconv.Unquote(q); err == nil {
				words = append(words, w)
			}
		}
		return words
	}
	return strings.Fields(strings.Trim(rest, "[]"))
}
