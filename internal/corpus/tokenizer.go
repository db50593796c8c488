// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package corpus turns extracted title content into the token streams
// the vectorizer consumes. Word boundaries follow Unicode UAX #29, so
// accented Spanish words and punctuation-heavy prose segment correctly.
package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
)

// Tokenize splits text into lowercase word tokens. Tokens must contain
// at least one letter and be at least two runes long; stop words are
// dropped. Numbers, punctuation and whitespace segments are discarded.
func Tokenize(text string) []string {
	var tokens []string
	iter := words.FromString(text)
	for iter.Next() {
		token := strings.ToLower(iter.Value())
		if !isWordToken(token) {
			continue
		}
		if IsStopWord(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// isWordToken filters out the non-word segments the UAX #29 iterator
// yields (spaces, punctuation, bare digits) and single-rune tokens.
func isWordToken(token string) bool {
	if utf8.RuneCountInString(token) < 2 {
		return false
	}
	for _, r := range token {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
