package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator censors banned words in message content before it is
// persisted or published. Matching runs on a normalized view of the text
// (lowercased, separators stripped) so spacing or casing tricks do not
// bypass it, while replacement happens on the original runes.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// banned word list. An empty list yields a pass-through moderator.
func NewModerator(bannedWords []string, replacement rune) (Moderator, error) {
	if len(bannedWords) == 0 {
		return Moderator{replacement: replacement}, nil
	}
	patterns := make([][]rune, len(bannedWords))
	for i, word := range bannedWords {
		normalized, _ := normalize([]rune(word))
		patterns[i] = normalized
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces every banned span with the replacement rune and returns
// the sanitized text along with the matched words.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}

	origRunes := []rune(original)
	normalized, origIdx := normalize(origRunes)
	if len(normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		origStart := origIdx[normStart]
		origEnd := origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes), found
}

// normalize lowercases and drops everything that is not a letter or a
// digit, keeping a mapping from normalized positions back to original
// rune indexes.
func normalize(runes []rune) ([]rune, []int) {
	normalized := make([]rune, 0, len(runes))
	origIdx := make([]int, 0, len(runes))
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}
