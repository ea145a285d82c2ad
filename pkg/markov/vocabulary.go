package markov

import (
	"iter"
	"slices"
)

// Vocabulary is the deduplicated set of words seen in a training corpus, held
// in ascending byte-wise order. A word's index in that order is the index used
// for its row and column in a Model's transition counts.
type Vocabulary struct {
	words []string
}

// NewVocabulary consumes words and returns the sorted set of distinct words.
func NewVocabulary(words iter.Seq[string]) *Vocabulary {
	unique := make(map[string]struct{})
	for word := range words {
		unique[word] = struct{}{}
	}

	sorted := make([]string, 0, len(unique))
	for word := range unique {
		sorted = append(sorted, word)
	}
	slices.Sort(sorted)

	return &Vocabulary{words: sorted}
}

// Len returns the number of distinct words.
func (v *Vocabulary) Len() int {
	return len(v.words)
}

// Word returns the word stored at index i.
func (v *Vocabulary) Word(i int) string {
	return v.words[i]
}

// Words returns a copy of the sorted words.
func (v *Vocabulary) Words() []string {
	return slices.Clone(v.words)
}

// IndexOf looks up word with a binary search. The boolean is false when the
// word is not part of the vocabulary.
func (v *Vocabulary) IndexOf(word string) (int, bool) {
	return slices.BinarySearch(v.words, word)
}
