package game

import (
	"fmt"
	"regexp"
	"strconv"
)

// Log lines are part of the stored record and are parsed back during replay.
// Keep these formats stable.
const (
	outcomeAssassin = " It's the ASSASSIN! Game Over."
	outcomeNeutral  = " It's a Civilian. Turn Over."
	outcomeOpponent = " It's the Opponent's card! Turn Over."
	outcomeCorrect  = " Correct!"

	lineOutOfGuesses = "Out of guesses. Turn Over."
)

var (
	clueLineRe  = regexp.MustCompile(`^(RED|BLUE) Spymaster gives clue: (.+) (\d+)$`)
	guessLineRe = regexp.MustCompile(`^(RED|BLUE) guesses (.+?)\.\.\.`)
)

func startLine(t Team) string {
	return fmt.Sprintf("Game initialized. Team %s starts.", t)
}

func clueLine(t Team, c Clue) string {
	return fmt.Sprintf("%s Spymaster gives clue: %s %d", t, c.Word, c.Number)
}

func guessLine(t Team, word, outcome string) string {
	return fmt.Sprintf("%s guesses %s...%s", t, word, outcome)
}

func endTurnLine(t Team) string {
	return fmt.Sprintf("%s ends turn manually.", t)
}

func winLine(t Team) string {
	return fmt.Sprintf("Team %s wins!", t)
}

// ParseClueLine extracts the clue from a "gives clue" log line.
func ParseClueLine(line string) (Team, Clue, bool) {
	m := clueLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", Clue{}, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return "", Clue{}, false
	}
	return Team(m[1]), Clue{Word: m[2], Number: n}, true
}

// ParseGuessLine extracts the guessed word from a "guesses" log line.
func ParseGuessLine(line string) (Team, string, bool) {
	m := guessLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return Team(m[1]), m[2], true
}
