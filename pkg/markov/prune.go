package markov

// Prune returns a copy of the model with every link whose count is less than
// or equal to `minFreq` removed. This is useful for reducing the noise of
// rare transitions. The vocabulary is kept as-is, so words whose links were
// all removed become dead ends. The receiver is not modified.
func (m *Model) Prune(minFreq uint32) *Model {
	words := make([]DictionaryWord, len(m.words))
	for i, word := range m.words {
		pruned := DictionaryWord{
			Name:    word.Name,
			Amounts: make([]uint32, len(word.Amounts)),
		}
		for j, amount := range word.Amounts {
			if amount > minFreq {
				pruned.Amounts[j] = amount
				pruned.Total += amount
			}
		}
		words[i] = pruned
	}
	return &Model{words: words}
}
