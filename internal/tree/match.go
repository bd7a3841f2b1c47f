package tree

import (
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"
)

// Matcher decides whether a label matches the filter text and, if so, how
// well. positions are byte offsets of matched runes in label.
type Matcher interface {
	Match(text, label string) (ok bool, score int, positions []int)
}

// FuzzyMatcher accepts labels containing the text's runes in order, ignoring
// case, and scores them by match quality.
type FuzzyMatcher struct{}

func (FuzzyMatcher) Match(text, label string) (bool, int, []int) {
	if !fuzzy.MatchFold(text, label) {
		return false, 0, nil
	}
	matches := sfuzzy.Find(text, []string{label})
	if len(matches) == 0 {
		return true, 0, nil
	}
	return true, matches[0].Score, matches[0].MatchedIndexes
}

// GroupPositions merges matched rune offsets into contiguous [start, end)
// byte spans of text.
func GroupPositions(text string, positions []int) [][2]int {
	var spans [][2]int
	for _, pos := range positions {
		if pos < 0 || pos >= len(text) {
			continue
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		end := pos + size
		if n := len(spans); n > 0 && spans[n-1][1] == pos {
			spans[n-1][1] = end
			continue
		}
		spans = append(spans, [2]int{pos, end})
	}
	return spans
}
