package markov

import (
	"testing"
)

func TestPrune(t *testing.T) {
	model := modelFromText("a b c. a b d.")
	// a -> b has count 2. b -> c, c -> a, b -> d have count 1.

	pruned := model.Prune(1)

	if pruned.Count("a", "b") != 2 {
		t.Errorf("expected a->b to survive with count 2, got %d", pruned.Count("a", "b"))
	}
	for _, link := range [][2]string{{"b", "c"}, {"b", "d"}, {"c", "a"}} {
		if c := pruned.Count(link[0], link[1]); c != 0 {
			t.Errorf("expected %s->%s to be pruned, got %d", link[0], link[1], c)
		}
	}
	if _, ok := pruned.PredictWord("b"); ok {
		t.Error("b lost all of its links and should be a dead end")
	}
	if pruned.Len() != model.Len() {
		t.Errorf("pruning changed the vocabulary size from %d to %d", model.Len(), pruned.Len())
	}

	// The receiver is untouched.
	if model.Count("b", "c") != 1 {
		t.Error("Prune modified the original model")
	}

	for _, name := range pruned.Words() {
		entry, _ := pruned.Entry(name)
		var sum uint32
		for _, amount := range entry.Amounts {
			sum += amount
		}
		if sum != entry.Total {
			t.Errorf("%q: total %d != sum %d after pruning", name, entry.Total, sum)
		}
	}

	if !model.Prune(0).Equal(model) {
		t.Error("pruning with minFreq 0 should keep every link")
	}
}

func TestStats(t *testing.T) {
	testCases := []struct {
		name     string
		corpus   string
		expected ModelStats
	}{
		{
			name:     "Scenario corpus",
			corpus:   "a b a c a b",
			expected: ModelStats{VocabSize: 3, TotalChains: 4, TotalFrequency: 5, DeadEnds: 0},
		},
		{
			name:     "Every word has a successor",
			corpus:   "one fish two fish. red fish blue fish.",
			expected: ModelStats{VocabSize: 5, TotalChains: 7, TotalFrequency: 7, DeadEnds: 0},
		},
		{
			name:     "Last word has no successor",
			corpus:   "a b",
			expected: ModelStats{VocabSize: 2, TotalChains: 1, TotalFrequency: 1, DeadEnds: 1},
		},
		{
			name:     "Empty",
			corpus:   "",
			expected: ModelStats{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := modelFromText(tc.corpus).Stats(); got != tc.expected {
				t.Errorf("Stats() = %+v, want %+v", got, tc.expected)
			}
		})
	}
}
