package markov

import (
	"context"
	"database/sql"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestStoreWithModel is a convenience helper that also saves a trained model.
func setupTestStoreWithModel(t *testing.T) (context.Context, *sql.DB, *Store, *Model) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	model := modelFromText("one fish two fish. red fish blue fish.")
	if err := s.SaveModel(ctx, "test_model", model); err != nil {
		t.Fatalf("setup: SaveModel() failed: %v", err)
	}
	return ctx, db, s, model
}

// modelFromText trains a model on text split with the default delimiters.
func modelFromText(text string) *Model {
	return Create(NewDefaultTokenizer().Words(text))
}

// sequenceRand replays fixed draws so sampling can be checked step by step.
type sequenceRand struct {
	draws  []uint32
	floats []float64
	calls  int
}

func (r *sequenceRand) Uint32N(n uint32) uint32 {
	v := r.draws[r.calls%len(r.draws)] % n
	r.calls++
	return v
}

func (r *sequenceRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.calls%len(r.floats)]
	r.calls++
	return v
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
