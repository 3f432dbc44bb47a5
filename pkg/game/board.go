package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// teamCounts holds tiles for the starting team and the other team per board
// size. Every board carries exactly one assassin; the rest are neutral.
var teamCounts = map[int][2]int{
	25: {9, 8},
	36: {12, 11},
	49: {17, 16},
	64: {20, 19},
}

// SupportedSizes returns the board sizes NewBoard accepts, ascending.
func SupportedSizes() []int {
	sizes := make([]int, 0, len(teamCounts))
	for size := range teamCounts {
		sizes = append(sizes, size)
	}
	slices.Sort(sizes)
	return sizes
}

// Distribution returns how many tiles of each team a board of the given size
// holds when starting is the first team to play.
func Distribution(size int, starting Team) (map[Team]int, error) {
	counts, ok := teamCounts[size]
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported board size %d", size)}
	}
	if !starting.IsPlaying() {
		return nil, &ConfigError{Reason: "starting team must be RED or BLUE"}
	}
	return map[Team]int{
		starting:            counts[0],
		starting.Opponent(): counts[1],
		TeamAssassin:        1,
		TeamNeutral:         size - counts[0] - counts[1] - 1,
	}, nil
}

// NewBoard draws size distinct words from vocabulary and assigns them teams.
// A nil rng uses the package level source.
func NewBoard(size int, vocabulary []string, starting Team, rng *rand.Rand) ([]Tile, error) {
	dist, err := Distribution(size, starting)
	if err != nil {
		return nil, err
	}

	words := dedupeWords(vocabulary)
	if len(words) < size {
		return nil, &ConfigError{Reason: fmt.Sprintf("vocabulary has %d distinct words, need %d", len(words), size)}
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	words = words[:size]

	teams := make([]Team, 0, size)
	for _, t := range []Team{starting, starting.Opponent(), TeamNeutral, TeamAssassin} {
		for range dist[t] {
			teams = append(teams, t)
		}
	}
	shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })

	board := make([]Tile, size)
	for i := range board {
		board[i] = Tile{Word: words[i], Team: teams[i]}
	}
	return board, nil
}

// dedupeWords normalizes to upper case and drops blanks and repeats.
func dedupeWords(vocabulary []string) []string {
	seen := make(map[string]struct{}, len(vocabulary))
	words := make([]string, 0, len(vocabulary))
	for _, w := range vocabulary {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
