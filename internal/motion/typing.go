package motion

import (
	mrand "math/rand"
	"unicode"
)

// TypingEvent is one key action in a synthesized typing sequence.
// Char '\b' is a backspace. DelayMs is the pause since the previous key.
type TypingEvent struct {
	Char         rune
	DelayMs      int
	IsCorrection bool
}

// qwertyNeighbors maps each key to its physically adjacent keys, used to
// pick plausible typo substitutions.
var qwertyNeighbors = map[rune][]rune{
	'q': {'w', 'a', 's'},
	'w': {'q', 'e', 'a', 's', 'd'},
	'e': {'w', 'r', 's', 'd', 'f'},
	'r': {'e', 't', 'd', 'f', 'g'},
	't': {'r', 'y', 'f', 'g', 'h'},
	'y': {'t', 'u', 'g', 'h', 'j'},
	'u': {'y', 'i', 'h', 'j', 'k'},
	'i': {'u', 'o', 'j', 'k', 'l'},
	'o': {'i', 'p', 'k', 'l'},
	'p': {'o', 'l'},
	'a': {'q', 'w', 's', 'z', 'x'},
	's': {'q', 'w', 'e', 'a', 'd', 'z', 'x', 'c'},
	'd': {'w', 'e', 'r', 's', 'f', 'x', 'c', 'v'},
	'f': {'e', 'r', 't', 'd', 'g', 'c', 'v', 'b'},
	'g': {'r', 't', 'y', 'f', 'h', 'v', 'b', 'n'},
	'h': {'t', 'y', 'u', 'g', 'j', 'b', 'n', 'm'},
	'j': {'y', 'u', 'i', 'h', 'k', 'n', 'm'},
	'k': {'u', 'i', 'o', 'j', 'l', 'm'},
	'l': {'i', 'o', 'p', 'k'},
	'z': {'a', 's', 'x'},
	'x': {'z', 'a', 's', 'd', 'c'},
	'c': {'x', 's', 'd', 'f', 'v'},
	'v': {'c', 'd', 'f', 'g', 'b'},
	'b': {'v', 'f', 'g', 'h', 'n'},
	'n': {'b', 'g', 'h', 'j', 'm'},
	'm': {'n', 'h', 'j', 'k'},
	'1': {'2', 'q'},
	'2': {'1', '3', 'q', 'w'},
	'3': {'2', '4', 'w', 'e'},
	'4': {'3', '5', 'e', 'r'},
	'5': {'4', '6', 'r', 't'},
	'6': {'5', '7', 't', 'y'},
	'7': {'6', '8', 'y', 'u'},
	'8': {'7', '9', 'u', 'i'},
	'9': {'8', '0', 'i', 'o'},
	'0': {'9', 'o', 'p'},
}

// Typing synthesizes a keystroke sequence for text. With probability
// errorRate per character, an adjacent-key substitution is emitted,
// noticed after a short delay, deleted with a backspace, and retyped.
// Replaying the events (applying backspaces) reconstructs text exactly.
func Typing(text string, errorRate float64, opts ...Option) []TypingEvent {
	cfg, rng := resolve(opts)

	events := make([]TypingEvent, 0, len(text))
	var prev rune

	for i, char := range text {
		delay := gaussInRange(rng, cfg.TypingDelayMinMs, cfg.TypingDelayMaxMs)

		// Word starts take a beat longer.
		if i == 0 || prev == ' ' {
			delay += intInRange(rng, 50, cfg.WordPauseExtraMs)
		}
		if unicode.IsUpper(char) {
			delay += intInRange(rng, 30, 80)
		}

		wrong := typoFor(rng, char)
		if wrong != 0 && rng.Float64() < errorRate {
			events = append(events,
				TypingEvent{Char: wrong, DelayMs: delay},
				TypingEvent{Char: '\b', DelayMs: intInRange(rng, cfg.CorrectionDelayMinMs, cfg.CorrectionDelayMaxMs), IsCorrection: true},
				TypingEvent{Char: char, DelayMs: intInRange(rng, 50, 150), IsCorrection: true},
			)
		} else {
			events = append(events, TypingEvent{Char: char, DelayMs: delay})
		}

		prev = char
	}

	return events
}

// Reconstruct replays a typing sequence, applying backspaces, and returns
// the resulting text.
func Reconstruct(events []TypingEvent) string {
	var out []rune
	for _, ev := range events {
		if ev.Char == '\b' {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, ev.Char)
	}
	return string(out)
}

// typoFor picks a key adjacent to char, preserving case. Returns 0 when
// the character has no mapped neighbors (punctuation, hangul, ...).
func typoFor(rng *mrand.Rand, char rune) rune {
	lower := unicode.ToLower(char)
	neighbors, ok := qwertyNeighbors[lower]
	if !ok || len(neighbors) == 0 {
		return 0
	}

	picked := neighbors[rng.Intn(len(neighbors))]
	if unicode.IsUpper(char) {
		return unicode.ToUpper(picked)
	}
	return picked
}
