package markov

import (
	"fmt"
	"slices"
	"strings"
)

// DictionaryWord is one vocabulary entry of a Model. Amounts[j] counts how many
// times this word was immediately followed by the j-th vocabulary word, and
// Total is the sum of Amounts.
type DictionaryWord struct {
	Name    string   `cbor:"name"`
	Total   uint32   `cbor:"total"`
	Amounts []uint32 `cbor:"amounts"`
}

// Model is a trained first-order Markov chain over words. Entries are sorted
// by name so a word's position is also its vocabulary index. A Model is never
// mutated after construction, so concurrent predictions against one Model are
// safe.
type Model struct {
	words []DictionaryWord
}

// newModel validates entries and wraps them in a Model. It is used by every
// path that rebuilds a Model from outside data.
func newModel(words []DictionaryWord) (*Model, error) {
	for i, word := range words {
		if i > 0 && strings.Compare(words[i-1].Name, word.Name) >= 0 {
			return nil, fmt.Errorf("entry %d (%q) is not in ascending order after %q", i, word.Name, words[i-1].Name)
		}
		if len(word.Amounts) != len(words) {
			return nil, fmt.Errorf("entry %q has %d amounts, want %d", word.Name, len(word.Amounts), len(words))
		}
		var sum uint64
		for _, amount := range word.Amounts {
			sum += uint64(amount)
		}
		if sum != uint64(word.Total) {
			return nil, fmt.Errorf("entry %q has total %d but amounts sum to %d", word.Name, word.Total, sum)
		}
	}
	return &Model{words: words}, nil
}

// Len returns the vocabulary size of the model.
func (m *Model) Len() int {
	return len(m.words)
}

// Words returns the vocabulary of the model in ascending order.
func (m *Model) Words() []string {
	names := make([]string, len(m.words))
	for i, word := range m.words {
		names[i] = word.Name
	}
	return names
}

// Entry returns a copy of the dictionary entry for word.
func (m *Model) Entry(word string) (DictionaryWord, bool) {
	i, ok := m.indexOf(word)
	if !ok {
		return DictionaryWord{}, false
	}
	entry := m.words[i]
	entry.Amounts = slices.Clone(entry.Amounts)
	return entry, true
}

// Count returns how many times from was immediately followed by to.
func (m *Model) Count(from, to string) uint32 {
	i, ok := m.indexOf(from)
	if !ok {
		return 0
	}
	j, ok := m.indexOf(to)
	if !ok {
		return 0
	}
	return m.words[i].Amounts[j]
}

// Equal reports whether both models hold the same vocabulary in the same order
// with the same counts.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	return slices.EqualFunc(m.words, other.words, func(a, b DictionaryWord) bool {
		return a.Name == b.Name && a.Total == b.Total && slices.Equal(a.Amounts, b.Amounts)
	})
}

func (m *Model) indexOf(word string) (int, bool) {
	return slices.BinarySearchFunc(m.words, word, func(entry DictionaryWord, target string) int {
		return strings.Compare(entry.Name, target)
	})
}
