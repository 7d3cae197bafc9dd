package heuristics

import (
	"regexp"
	"strings"
	"unicode"
)

// #region patterns

// contrastivePatterns mark responses that actually weigh alternatives
// instead of agreeing with themselves.
var contrastivePatterns = []string{
	"however",
	"on the other hand",
	"in contrast",
	"whereas",
	"but ",
	"although",
	"conversely",
	"nevertheless",
}

// examplePatterns mark concrete grounding in a response.
var examplePatterns = []string{
	"for example",
	"for instance",
	"e.g.",
	"such as",
	"consider the case",
}

var numberedLine = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
var numericRating = regexp.MustCompile(`\b\d+(\.\d+)?\s*/\s*(10|100)\b|\brating[:\s]+\d`)

// #endregion patterns

// #region tokenize

// Tokenize lowercases and splits text into word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// #endregion tokenize

// #region diversity

// LexicalDiversity returns unique tokens / total tokens, 0 for empty text.
func LexicalDiversity(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[t] = struct{}{}
	}
	return float64(len(unique)) / float64(len(tokens))
}

// WordOverlap returns the fraction of a's unique tokens also present in b.
func WordOverlap(a, b string) float64 {
	ta := Tokenize(a)
	if len(ta) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, t := range Tokenize(b) {
		setB[t] = struct{}{}
	}
	shared := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(setA))
}

// LengthRatio returns len(mutated)/len(original) in characters, 0 when the
// original is empty.
func LengthRatio(original, mutated string) float64 {
	if len(original) == 0 {
		return 0
	}
	return float64(len(mutated)) / float64(len(original))
}

// #endregion diversity

// #region structure

// ContrastiveCount counts contrastive connectives in the text.
func ContrastiveCount(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, p := range contrastivePatterns {
		count += strings.Count(lower, p)
	}
	return count
}

// HasNumberedStructure reports whether the text contains at least two
// numbered list lines.
func HasNumberedStructure(text string) bool {
	return len(numberedLine.FindAllString(text, 2)) >= 2
}

// HasExamples reports whether the text grounds itself in concrete examples.
func HasExamples(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range examplePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// HasNumericRatings reports whether the text contains numeric ratings.
func HasNumericRatings(text string) bool {
	return numericRating.MatchString(strings.ToLower(text))
}

// #endregion structure

// #region clamp

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
