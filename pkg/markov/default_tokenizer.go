package markov

import (
	"bufio"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It splits text on a fixed set of delimiter characters and discards the empty
// pieces. There is no case folding and no punctuation stripping beyond the
// delimiter set. Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator  string
	delimiters string
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining words during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithDelimiters sets the characters used when splitting input text.
// Default: DefaultDelimiters
func WithDelimiters(delimiters string) Option {
	return func(t *DefaultTokenizer) {
		t.delimiters = delimiters
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator:  " ",
		delimiters: DefaultDelimiters,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Separator Returns the configured separator string.
func (t *DefaultTokenizer) Separator() string {
	return t.separator
}

// Words returns a lazy, restartable sequence over the non-empty words of text.
func (t *DefaultTokenizer) Words(text string) iter.Seq[string] {
	return strings.FieldsFuncSeq(text, t.isDelimiter)
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxTokenSize)
	scanner.Split(t.scanWords)
	return &DefaultStreamTokenizer{scanner: scanner}
}

func (t *DefaultTokenizer) isDelimiter(r rune) bool {
	return strings.ContainsRune(t.delimiters, r)
}

// scanWords is a bufio.SplitFunc modeled on bufio.ScanWords that splits on the
// configured delimiters instead of Unicode white space.
func (t *DefaultTokenizer) scanWords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// Skip leading delimiters.
	start := 0
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if !t.isDelimiter(r) {
			break
		}
	}
	// Scan until a delimiter, marking the end of the word.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if t.isDelimiter(r) {
			return i + width, data[start:i], nil
		}
	}
	// At EOF we have a final, non-empty, non-terminated word.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return start, nil, nil
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It uses a bufio.Scanner with a delimiter-aware split function.
type DefaultStreamTokenizer struct {
	scanner *bufio.Scanner
}

// Next returns the next word from the stream. When the stream is exhausted,
// it returns an empty string and io.EOF. Any other error indicates a problem
// reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
