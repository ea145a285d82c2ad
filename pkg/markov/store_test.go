package markov

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreSaveAndLoad(t *testing.T) {
	ctx, _, s, model := setupTestStoreWithModel(t)

	loaded, err := s.LoadModel(ctx, "test_model")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}
	if !loaded.Equal(model) {
		t.Error("model loaded from the store differs from the saved one")
	}

	info, err := s.GetModelInfo(ctx, "test_model")
	if err != nil {
		t.Fatalf("GetModelInfo() failed: %v", err)
	}
	if info.Name != "test_model" || info.VocabSize != model.Len() {
		t.Errorf("got unexpected model info: %+v", info)
	}
}

func TestStoreStoresOnlyObservedTransitions(t *testing.T) {
	ctx, db, s, model := setupTestStoreWithModel(t)
	info, _ := s.GetModelInfo(ctx, "test_model")

	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_transitions WHERE model_id = ?", info.Id).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != model.Stats().TotalChains {
		t.Errorf("expected %d stored transitions, got %d", model.Stats().TotalChains, count)
	}
}

func TestStoreReplaceModel(t *testing.T) {
	ctx, _, s, _ := setupTestStoreWithModel(t)

	replacement := modelFromText("a b a c a b")
	if err := s.SaveModel(ctx, "test_model", replacement); err != nil {
		t.Fatalf("SaveModel() replace failed: %v", err)
	}

	loaded, err := s.LoadModel(ctx, "test_model")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}
	if !loaded.Equal(replacement) {
		t.Error("expected the replacement model to be loaded")
	}

	models, err := s.GetModelInfos(ctx)
	if err != nil {
		t.Fatalf("GetModelInfos() failed: %v", err)
	}
	if len(models) != 1 || models["test_model"].VocabSize != 3 {
		t.Errorf("unexpected models after replace: %+v", models)
	}
}

func TestStoreModelNotFound(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.LoadModel(ctx, "nonexistent_model"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := s.GetModelInfo(ctx, "nonexistent_model"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestStoreRemoveModel(t *testing.T) {
	ctx, db, s, _ := setupTestStoreWithModel(t)
	keep := modelFromText("keep this data")
	if err := s.SaveModel(ctx, "to_keep", keep); err != nil {
		t.Fatal(err)
	}
	removed, _ := s.GetModelInfo(ctx, "test_model")

	if err := s.RemoveModel(ctx, "test_model"); err != nil {
		t.Fatalf("RemoveModel() failed: %v", err)
	}
	if err := s.RemoveModel(ctx, "test_model"); err != nil {
		t.Errorf("removing an absent model should not fail, got %v", err)
	}

	if _, err := s.LoadModel(ctx, "test_model"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound for removed model, got %v", err)
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_vocabulary WHERE model_id = ?", removed.Id).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 vocabulary rows for removed model, found %d", count)
	}
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_transitions WHERE model_id = ?", removed.Id).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 transitions for removed model, found %d", count)
	}

	loaded, err := s.LoadModel(ctx, "to_keep")
	if err != nil || !loaded.Equal(keep) {
		t.Errorf("kept model was damaged: %v", err)
	}
}

func TestStoreEmptyModel(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	empty := modelFromText("")
	if err := s.SaveModel(ctx, "empty", empty); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	loaded, err := s.LoadModel(ctx, "empty")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("expected an empty model, got %d words", loaded.Len())
	}
}

func TestStoreRejectsCorruptRows(t *testing.T) {
	testCases := []struct {
		name    string
		corrupt string
	}{
		{name: "Total mismatch", corrupt: "UPDATE markov_vocabulary SET total = total + 1 WHERE word_index = 0"},
		{name: "Transition outside vocabulary", corrupt: "UPDATE markov_transitions SET to_index = 99 WHERE rowid = (SELECT MIN(rowid) FROM markov_transitions)"},
		{name: "Missing vocabulary row", corrupt: "DELETE FROM markov_vocabulary WHERE word_index = 1"},
		{name: "Unsorted vocabulary", corrupt: "UPDATE markov_vocabulary SET word_text = 'zzz' WHERE word_index = 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, db, s, _ := setupTestStoreWithModel(t)
			if _, err := db.ExecContext(ctx, tc.corrupt); err != nil {
				t.Fatalf("corrupting rows failed: %v", err)
			}
			if _, err := s.LoadModel(ctx, "test_model"); !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestSetupSchemaIsIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema() failed: %v", err)
	}
}

func TestNewStoreFailsOnPartialSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "partial.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err = db.Exec(`CREATE TABLE markov_models (model_id INTEGER PRIMARY KEY, model_name TEXT UNIQUE NOT NULL, vocab_size INTEGER NOT NULL);`); err != nil {
		t.Fatalf("failed to create models table: %v", err)
	}

	s, err := NewStore(db)
	if err == nil {
		s.Close()
		t.Fatal("expected NewStore to fail without the vocabulary and transition tables")
	}
	if err = db.Close(); err != nil {
		t.Errorf("db.Close() after failed NewStore: %v", err)
	}
}
