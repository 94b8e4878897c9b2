// Package tokenizer turns rated review lines into score records. It splits
// on whitespace, lower-cases words and drops words that are too short or on
// the fixed exclusion list. There is no stemming.
package tokenizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

// MinWordLength is the shortest word that is indexed. Words with fewer runes
// are excluded.
const MinWordLength = 3

var excludedWords = map[string]struct{}{
	"you": {}, "she": {}, "they": {}, "the": {}, "and": {}, "but": {},
}

// Record is one rated review line: its score and the words that survived
// normalisation and exclusion, in line order.
type Record struct {
	Score float64
	Words []string
}

// Normalize returns the index form of a word.
func Normalize(word string) string {
	return strings.ToLower(word)
}

// IsExcluded reports whether a normalised word is never indexed.
func IsExcluded(word string) bool {
	if utf8.RuneCountInString(word) < MinWordLength {
		return true
	}
	_, excluded := excludedWords[word]
	return excluded
}

// ExcludedWords returns a copy of the fixed exclusion list.
func ExcludedWords() []string {
	words := make([]string, 0, len(excludedWords))
	for w := range excludedWords {
		words = append(words, w)
	}
	return words
}

// ParseLine parses "<score> <word>*". A line without a leading finite
// number yields an error wrapping ErrMalformedLine.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("empty line: %w", apperrors.ErrMalformedLine)
	}
	score, err := ParseNumber(fields[0])
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return Record{}, fmt.Errorf("leading token %q is not a score: %w", fields[0], apperrors.ErrMalformedLine)
	}
	rec := Record{
		Score: score,
		Words: make([]string, 0, len(fields)-1),
	}
	for _, field := range fields[1:] {
		word := Normalize(field)
		if IsExcluded(word) {
			continue
		}
		rec.Words = append(rec.Words, word)
	}
	return rec, nil
}

// ParseNumber parses a plain decimal number such as "4", "-0.5" or "2e3".
// Go literal forms that strconv.ParseFloat also accepts, digit separators
// and hexadecimal mantissas, are rejected.
func ParseNumber(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if strings.ContainsRune(s, '_') || strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal number: %w", s, err)
	}
	return v, nil
}
