package markov

// ModelStats holds aggregated statistics for a single Markov model.
type ModelStats struct {
	VocabSize      int    // The number of unique words in the vocabulary.
	TotalChains    int    // The number of unique word->next_word links.
	TotalFrequency uint64 // The sum of all link counts; the number of trained transitions.
	DeadEnds       int    // The number of words that were never followed by another word.
}

// Stats returns a snapshot of statistics for the model.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{VocabSize: len(m.words)}
	for _, word := range m.words {
		if word.Total == 0 {
			stats.DeadEnds++
			continue
		}
		stats.TotalFrequency += uint64(word.Total)
		for _, amount := range word.Amounts {
			if amount > 0 {
				stats.TotalChains++
			}
		}
	}
	return stats
}
