package agent

import (
	"fmt"
	"strconv"
	"strings"

	"codenames/pkg/game"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// extractJSON returns the JSON object inside a model reply. Markdown fences
// and chatter around the object are dropped.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		body := text[i+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			// skip the language tag of the fence
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		text = strings.TrimSpace(body)
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", invalidf("reply does not contain a JSON object")
	}
	return text[start : end+1], nil
}

// flexInt accepts 2, 2.0 and "2".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("number is missing")
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int(v)) {
		return fmt.Errorf("number %s is not an integer", string(data))
	}
	*f = flexInt(int(v))
	return nil
}

type spymasterReply struct {
	Reasoning string   `json:"reasoning"`
	Word      string   `json:"word"`
	Number    *flexInt `json:"number"`
}

type guesserReply struct {
	Reasoning string   `json:"reasoning"`
	Words     []string `json:"words"`
}

// parseClue decodes and validates a spymaster reply against the board in v.
func parseClue(text string, v *game.View) (game.Clue, string, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return game.Clue{}, "", err
	}
	var reply spymasterReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return game.Clue{}, "", invalidf("reply is not valid JSON: %v", err)
	}
	if reply.Number == nil {
		return game.Clue{}, "", invalidf(`"number" is missing`)
	}

	word := strings.ToUpper(strings.TrimSpace(reply.Word))
	number := int(*reply.Number)
	if r := game.ValidateClue(&game.State{Board: v.Board}, word, number); r != nil {
		return game.Clue{}, "", invalidf("%s", r.Reason)
	}
	return game.Clue{Word: word, Number: number}, reply.Reasoning, nil
}

// parsePlan decodes a guesser reply into an ordered list of unrevealed words.
// The plan stops at the END_TURN sentinel; stopped reports whether it was
// present.
func parsePlan(text string, v *game.View) (words []string, stopped bool, reasoning string, err error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, false, "", err
	}
	var reply guesserReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, false, "", invalidf("reply is not valid JSON: %v", err)
	}
	if len(reply.Words) == 0 {
		return nil, false, "", invalidf(`"words" must list at least one word or %q`, EndTurnSentinel)
	}

	seen := make(map[string]bool)
	for _, w := range reply.Words {
		w = strings.TrimSpace(w)
		if strings.EqualFold(w, EndTurnSentinel) {
			stopped = true
			break
		}
		word, ok := v.IsUnrevealed(w)
		if !ok {
			return nil, false, "", invalidf("%q is not an unrevealed word on the board", w)
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	return words, stopped, reply.Reasoning, nil
}
