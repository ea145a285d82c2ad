package markov

import (
	"io"
	"iter"
)

// DefaultDelimiters is the set of characters the DefaultTokenizer splits on.
const DefaultDelimiters = " \n,."

// MaxTokenSize is the longest single word a StreamTokenizer will accept.
const MaxTokenSize = 1 << 20

// Tokenizer is an interface that defines the contract for splitting input text
// into words. This allows the model construction and generation logic to be
// independent of the specific tokenization strategy.
type Tokenizer interface {
	// Words returns a lazy sequence over the words of text. The sequence is
	// restartable: every range over it walks text again from the start.
	Words(text string) iter.Seq[string]
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Separator returns the string used to join words when building a
	// generated string.
	Separator() string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one word at a time.
type StreamTokenizer interface {
	// Next returns the next word from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (string, error)
}

// Split tokenizes text with the default delimiters and returns the words in order.
func Split(text string) []string {
	var words []string
	for word := range defaultTokenizer.Words(text) {
		words = append(words, word)
	}
	return words
}

var defaultTokenizer = NewDefaultTokenizer()
