package agent

import (
	"fmt"
	"strings"

	"codenames/pkg/game"
	"codenames/pkg/llm"
)

const spymasterPrompt = `You are an expert Codenames Spymaster for Team %[1]s.
Your goal is to be the FIRST to contact all your team's words.
Give a single-word clue that connects as many of your team's cards as possible, while strictly avoiding (in order of importance) the Assassin, the opposing team's cards and the neutral cards.

STRATEGY:
1. Look for semantic intersections between 2, 3 or more of your words.
2. Prefer clues with numbers >= 2. A clue for one word is weak unless it is the last one.
3. Guessers read your previous clues. You can use a new clue to steer them toward words hinted before but not guessed.
4. Never give a clue that relates more strongly to the Assassin than to your words.

RULES:
1. The clue must be a single word (no spaces, no hyphens).
2. The clue cannot be any unrevealed board word.
3. The clue cannot contain an unrevealed board word, and no unrevealed board word may contain the clue.
4. The number must be a non-negative integer.

Game History:
%[2]s

Your remaining words: %[3]s
BAD words (avoid!): %[4]s (Assassin), %[5]s (Opponent), %[6]s (Neutral)

Reply with JSON only:
{
  "reasoning": "brief thought process (max 2 sentences)",
  "word": "CLUE",
  "number": 2
}`

const guesserPrompt = `You are an expert Codenames Guesser for Team %[1]s.
Your Spymaster gave the clue "%[2]s" for %[3]d card(s). You may make up to %[4]d guesses this turn.

STRATEGY:
1. Consider every meaning of "%[2]s".
2. Rank the unrevealed words by how close they are to the clue and pick the strongest matches in order.
3. Look at your Spymaster's previous clues in the Game History. Words from an earlier clue you did not finish may still be yours.
4. Stop early when the next word is weak. Guessing an opponent or neutral card ends your turn and the Assassin loses the game.

Game History:
%[5]s

Reply with JSON only:
{
  "reasoning": "brief analysis (max 2 sentences)",
  "words": ["GUESS_1", "GUESS_2"]
}
Guesses are applied in order. Put "%[6]s" in the list where you want to stop; return ["%[6]s"] if you have no confident guess.`

// EndTurnSentinel ends a guess plan.
const EndTurnSentinel = "END_TURN"

func formatBoard(v *game.View) string {
	var sb strings.Builder
	sb.WriteString("Current Board:\n")
	for _, t := range v.Board {
		team := "UNKNOWN"
		if t.Team != "" {
			team = string(t.Team)
		}
		status := ""
		if t.Revealed {
			status = " (REVEALED)"
		}
		fmt.Fprintf(&sb, "- %s [%s]%s\n", t.Word, team, status)
	}
	return sb.String()
}

func formatClueHistory(history []game.ClueRecord) string {
	if len(history) == 0 {
		return "No clues given yet."
	}
	lines := make([]string, 0, len(history))
	for _, entry := range history {
		if len(entry.Guesses) == 0 {
			lines = append(lines, fmt.Sprintf("%s: %s %d -> (no guesses)", entry.Team, entry.Clue, entry.Number))
			continue
		}
		guesses := make([]string, 0, len(entry.Guesses))
		for _, g := range entry.Guesses {
			guesses = append(guesses, fmt.Sprintf("%s(%s)", g.Word, g.Result))
		}
		lines = append(lines, fmt.Sprintf("%s: %s %d -> %s", entry.Team, entry.Clue, entry.Number, strings.Join(guesses, ", ")))
	}
	return strings.Join(lines, "\n")
}

func listWords(words []string) string {
	if len(words) == 0 {
		return "[]"
	}
	return "[" + strings.Join(words, ", ") + "]"
}

// buildMessages renders the opening conversation for the seat in v.
func buildMessages(v *game.View) []llm.Message {
	var system string
	switch v.Role {
	case game.RoleSpymaster:
		system = fmt.Sprintf(spymasterPrompt,
			v.Team,
			formatClueHistory(v.ClueHistory),
			listWords(v.UnrevealedOf(v.Team)),
			listWords(v.UnrevealedOf(game.TeamAssassin)),
			listWords(v.UnrevealedOf(v.Team.Opponent())),
			listWords(v.UnrevealedOf(game.TeamNeutral)),
		)
	default:
		clue := game.Clue{}
		if v.LastClue != nil {
			clue = *v.LastClue
		}
		system = fmt.Sprintf(guesserPrompt,
			v.Team,
			clue.Word,
			clue.Number,
			v.RemainingGuesses,
			formatClueHistory(v.ClueHistory),
			EndTurnSentinel,
		)
	}
	return []llm.Message{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(formatBoard(v)),
	}
}
