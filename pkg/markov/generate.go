package markov

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// Rand is the source of randomness used when sampling a successor word.
// *rand.Rand from math/rand/v2 satisfies it, which makes seeded,
// reproducible generation possible in tests.
type Rand interface {
	// Uint32N returns a uniform value in [0, n). n is never zero.
	Uint32N(n uint32) uint32
	// Float64 returns a uniform value in [0.0, 1.0).
	Float64() float64
}

// globalRand draws from the process-wide math/rand/v2 source.
type globalRand struct{}

func (globalRand) Uint32N(n uint32) uint32 { return rand.Uint32N(n) }
func (globalRand) Float64() float64        { return rand.Float64() }

// generateOptions Is used by the predict and generate functions to configure default options.
type generateOptions struct {
	rand        Rand
	temperature float64
	topK        int
}

// GenerateOption is a function that configures sampling parameters. It's used
// as a variadic argument in PredictWord, Continue, and GenerateFromString.
type GenerateOption func(*generateOptions)

// WithRand sets the random source used for sampling. By default the
// process-wide math/rand/v2 source is used.
func WithRand(r Rand) GenerateOption {
	return func(o *generateOptions) {
		if r != nil {
			o.rand = r
		}
	}
}

// WithTemperature adjusts the randomness of the word selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 increase randomness (making less frequent words more likely).
// Values < 1.0 decrease randomness (making more frequent words even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent word).
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the selection pool to the top `k` most frequent successors
// at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		rand:        globalRand{},
		temperature: 1.0,
		topK:        0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// PredictWord samples a successor of word, weighted by how often each
// successor followed word in the training corpus. It returns false when word
// is not in the vocabulary or was never followed by another word.
func (m *Model) PredictWord(word string, opts ...GenerateOption) (string, bool) {
	i, ok := m.indexOf(word)
	if !ok {
		return "", false
	}
	entry := &m.words[i]
	if entry.Total == 0 {
		return "", false
	}

	next := chooseNext(entry, newGenerateOptions(opts))
	if next < 0 {
		return "", false
	}
	return m.words[next].Name, true
}

// Continue extends seed with up to amount predicted words, each one predicted
// from the word before it. Generation stops early when the last word has no
// prediction. The returned slice starts with a copy of seed.
func (m *Model) Continue(seed []string, amount int, opts ...GenerateOption) ([]string, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	options := newGenerateOptions(opts)
	predicted := make([]string, len(seed), len(seed)+min(amount, len(m.words)+1))
	copy(predicted, seed)

	for range amount {
		i, ok := m.indexOf(predicted[len(predicted)-1])
		if !ok || m.words[i].Total == 0 {
			break
		}
		next := chooseNext(&m.words[i], options)
		if next < 0 {
			break
		}
		predicted = append(predicted, m.words[next].Name)
	}

	return predicted, nil
}

// GenerateFromString tokenizes text, continues it with up to amount predicted
// words, and joins the result with the tokenizer's separator. A nil tokenizer
// uses the DefaultTokenizer.
func (m *Model) GenerateFromString(text string, amount int, tokenizer Tokenizer, opts ...GenerateOption) (string, error) {
	if tokenizer == nil {
		tokenizer = defaultTokenizer
	}
	var seed []string
	for word := range tokenizer.Words(text) {
		seed = append(seed, word)
	}

	words, err := m.Continue(seed, amount, opts...)
	if err != nil {
		return "", err
	}
	return strings.Join(words, tokenizer.Separator()), nil
}

// sampleIndex walks amounts in vocabulary order keeping a running sum and
// returns the first index whose cumulative count strictly exceeds r. It returns
// -1 when r is not below the sum of amounts.
func sampleIndex(amounts []uint32, r uint32) int {
	var cumulative uint64
	for i, amount := range amounts {
		cumulative += uint64(amount)
		if cumulative > uint64(r) {
			return i
		}
	}
	return -1
}

// candidate is a successor with a non-zero count.
type candidate struct {
	index int
	freq  uint32
}

// chooseNext picks a successor index for entry, whose Total must be non-zero.
func chooseNext(entry *DictionaryWord, options *generateOptions) int {
	if options.topK <= 0 && options.temperature == 1.0 {
		return sampleIndex(entry.Amounts, options.rand.Uint32N(entry.Total))
	}

	choices := make([]candidate, 0, 8)
	for i, amount := range entry.Amounts {
		if amount > 0 {
			choices = append(choices, candidate{index: i, freq: amount})
		}
	}
	if len(choices) == 0 {
		return -1
	}

	// topK filtering
	if options.topK > 0 && options.topK < len(choices) {
		sort.SliceStable(choices, func(i, j int) bool {
			return choices[i].freq > choices[j].freq
		})
		choices = choices[:options.topK]
	}

	// temperature selection
	if options.temperature <= 0 { // Deterministic
		best := choices[0]
		for _, choice := range choices[1:] {
			if choice.freq > best.freq || (choice.freq == best.freq && choice.index < best.index) {
				best = choice
			}
		}
		return best.index
	}

	if options.temperature == 1.0 { // Standard weighted random
		var total uint32
		for _, choice := range choices {
			total += choice.freq
		}
		randChoice := options.rand.Uint32N(total)
		for _, choice := range choices {
			if randChoice < choice.freq {
				return choice.index
			}
			randChoice -= choice.freq
		}
		return choices[len(choices)-1].index
	}

	// Temperature-based sampling
	logProbabilities := make([]float64, len(choices))
	maxLogProb := math.Inf(-1)
	for i, choice := range choices {
		lp := math.Log(float64(choice.freq)) / options.temperature
		logProbabilities[i] = lp
		if lp > maxLogProb {
			maxLogProb = lp
		}
	}
	var totalWeight float64
	weights := make([]float64, len(choices))
	for i, lp := range logProbabilities {
		w := math.Exp(lp - maxLogProb)
		weights[i] = w
		totalWeight += w
	}
	randChoice := options.rand.Float64() * totalWeight
	for i, choice := range choices {
		randChoice -= weights[i]
		if randChoice < 0 {
			return choice.index
		}
	}
	return choices[len(choices)-1].index
}
