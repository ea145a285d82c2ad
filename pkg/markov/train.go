package markov

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

// Create builds a Model from an ordered sequence of words. The sequence is
// ranged over twice: once to build the vocabulary and once to count the
// transitions between adjacent words, so it must be restartable.
//
// An empty sequence yields an empty Model. A single word yields a one-entry
// Model whose word has no successor.
func Create(words iter.Seq[string]) *Model {
	vocab := NewVocabulary(words)

	size := vocab.Len()
	entries := make([]DictionaryWord, size)
	for i := range entries {
		entries[i] = DictionaryWord{
			Name:    vocab.Word(i),
			Amounts: make([]uint32, size),
		}
	}

	current := -1
	for word := range words {
		next, ok := vocab.IndexOf(word)
		if !ok {
			panic(fmt.Sprintf("markov: word %q missing from its own vocabulary", word))
		}
		if current >= 0 {
			entries[current].Total++
			entries[current].Amounts[next]++
		}
		current = next
	}

	return &Model{words: entries}
}

// Train reads all words from data with the given tokenizer and builds a Model
// from them. A nil tokenizer uses the DefaultTokenizer.
func Train(data io.Reader, tokenizer Tokenizer) (*Model, error) {
	if tokenizer == nil {
		tokenizer = defaultTokenizer
	}

	stream := tokenizer.NewStream(data)
	var words []string
	for {
		word, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		words = append(words, word)
	}

	return Create(slices.Values(words)), nil
}
