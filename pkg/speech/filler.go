package speech

import "strings"

// fillerWords is the fixed list of disfluencies counted against fluency.
var fillerWords = map[string]bool{
	"um":        true,
	"uh":        true,
	"er":        true,
	"ah":        true,
	"hmm":       true,
	"like":      true,
	"so":        true,
	"well":      true,
	"actually":  true,
	"basically": true,
	"literally": true,
	"right":     true,
}

// fillerBigrams are two-word fillers checked against consecutive words.
var fillerBigrams = map[string]bool{
	"you know": true,
	"i mean":   true,
	"sort of":  true,
	"kind of":  true,
}

// isFiller reports whether a normalized word is a single-word filler.
func isFiller(word string) bool {
	return fillerWords[word]
}

// isFillerBigram reports whether two consecutive normalized words form a
// filler phrase.
func isFillerBigram(prev, word string) bool {
	return fillerBigrams[prev+" "+word]
}

// normalizeWord lowercases and strips punctuation for filler matching.
func normalizeWord(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	return strings.Trim(word, ".,!?;:\"'")
}
