package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// ModelInfo holds the metadata of a model kept in a Store.
type ModelInfo struct {
	Id        int
	Name      string
	VocabSize int
}

// SetupSchema initializes the tables used by the Store in the provided
// database. This function should be called once on a new database before any
// other operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    vocab_size INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    model_id INTEGER NOT NULL,
    word_index INTEGER NOT NULL,
    word_text TEXT NOT NULL,
    total INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (model_id, word_index)
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS markov_transitions (
    model_id INTEGER NOT NULL,
    from_index INTEGER NOT NULL,
    to_index INTEGER NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (model_id, from_index, to_index)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store keeps named models in a SQLite database. Only non-zero transitions are
// stored, so a sparse corpus takes far less room than the model's dense
// in-memory form.
type Store struct {
	db                *sql.DB
	stmtGetModelInfo  *sql.Stmt
	stmtGetModels     *sql.Stmt
	stmtGetVocabulary *sql.Stmt
	stmtGetChains     *sql.Stmt
	logger            *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles the read
// statements, returning an error if any preparation fails. SetupSchema must
// have been called on db first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModelInfo, err := db.Prepare(`SELECT model_id, vocab_size FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, vocab_size FROM markov_models;`)
	if err != nil {
		_ = stmtGetModelInfo.Close()
		return nil, err
	}

	stmtGetVocabulary, err := db.Prepare(`SELECT word_index, word_text, total FROM markov_vocabulary WHERE model_id = ? ORDER BY word_index;`)
	if err != nil {
		_ = stmtGetModelInfo.Close()
		_ = stmtGetModels.Close()
		return nil, err
	}

	stmtGetChains, err := db.Prepare(`SELECT from_index, to_index, frequency FROM markov_transitions WHERE model_id = ?;`)
	if err != nil {
		_ = stmtGetModelInfo.Close()
		_ = stmtGetModels.Close()
		_ = stmtGetVocabulary.Close()
		return nil, err
	}

	return &Store{
		db:                db,
		stmtGetModelInfo:  stmtGetModelInfo,
		stmtGetModels:     stmtGetModels,
		stmtGetVocabulary: stmtGetVocabulary,
		stmtGetChains:     stmtGetChains,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It does not
// close the database itself.
func (s *Store) Close() {
	_ = s.stmtGetModelInfo.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtGetVocabulary.Close()
	_ = s.stmtGetChains.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetModelInfos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.VocabSize); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by name.
// It returns ErrModelNotFound if no model has that name.
func (s *Store) GetModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	info := ModelInfo{Name: name}
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.VocabSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelInfo{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
		}
		return ModelInfo{}, err
	}
	return info, nil
}

// SaveModel stores model under name, replacing any model already saved with
// that name. The operation is performed within a transaction.
func (s *Store) SaveModel(ctx context.Context, name string, model *Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.QueryRowContext(ctx, "SELECT model_id FROM markov_models WHERE model_name = ?", name).Scan(&modelID)
	if errors.Is(err, sql.ErrNoRows) {
		var res sql.Result
		res, err = tx.ExecContext(ctx, "INSERT INTO markov_models (model_name, vocab_size) VALUES (?, ?)", name, model.Len())
		if err != nil {
			return fmt.Errorf("failed to insert new model '%s': %w", name, err)
		}
		var newID int64
		newID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read id of model '%s': %w", name, err)
		}
		modelID = int(newID)
	} else if err != nil {
		return fmt.Errorf("failed to query for model '%s': %w", name, err)
	} else {
		if err = clearModel(ctx, tx, modelID); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, "UPDATE markov_models SET vocab_size = ? WHERE model_id = ?", model.Len(), modelID); err != nil {
			return fmt.Errorf("failed to update model '%s': %w", name, err)
		}
	}

	stmtInsertVocab, err := tx.PrepareContext(ctx, `INSERT INTO markov_vocabulary (model_id, word_index, word_text, total) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare vocabulary insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertVocab)

	stmtInsertChain, err := tx.PrepareContext(ctx, `INSERT INTO markov_transitions (model_id, from_index, to_index, frequency) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare transition insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	var chainCount int
	for i, word := range model.words {
		if _, err = stmtInsertVocab.ExecContext(ctx, modelID, i, word.Name, word.Total); err != nil {
			return fmt.Errorf("failed to insert vocabulary word '%s': %w", word.Name, err)
		}
		for j, amount := range word.Amounts {
			if amount == 0 {
				continue
			}
			if _, err = stmtInsertChain.ExecContext(ctx, modelID, i, j, amount); err != nil {
				return fmt.Errorf("failed to insert transition (%d -> %d): %w", i, j, err)
			}
			chainCount++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("vocab_size", model.Len()),
		slog.Int("chains_saved", chainCount),
	)

	return tx.Commit()
}

// LoadModel rebuilds the model saved under name. It returns ErrModelNotFound
// if no model has that name, and ErrDecode if the stored rows do not form a
// valid model.
func (s *Store) LoadModel(ctx context.Context, name string) (*Model, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	words, err := s.loadVocabulary(ctx, info)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetChains.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query transitions for model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var chainCount int
	for rows.Next() {
		var from, to int
		var frequency int64
		if err = rows.Scan(&from, &to, &frequency); err != nil {
			return nil, err
		}
		if from < 0 || from >= len(words) || to < 0 || to >= len(words) {
			return nil, fmt.Errorf("%w: transition (%d -> %d) outside vocabulary of %d words", ErrDecode, from, to, len(words))
		}
		if frequency < 0 || frequency > math.MaxUint32 {
			return nil, fmt.Errorf("%w: transition (%d -> %d) has frequency %d", ErrDecode, from, to, frequency)
		}
		words[from].Amounts[to] = uint32(frequency)
		chainCount++
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	model, err := newModel(words)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("vocab_size", len(words)),
		slog.Int("chains_loaded", chainCount),
	)

	return model, nil
}

// loadVocabulary reads the ordered vocabulary rows of a model and returns
// entries with zeroed amounts.
func (s *Store) loadVocabulary(ctx context.Context, info ModelInfo) ([]DictionaryWord, error) {
	rows, err := s.stmtGetVocabulary.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query vocabulary for model '%s': %w", info.Name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	words := make([]DictionaryWord, 0, info.VocabSize)
	for rows.Next() {
		var index int
		var total int64
		var word DictionaryWord
		if err = rows.Scan(&index, &word.Name, &total); err != nil {
			return nil, err
		}
		if index != len(words) {
			return nil, fmt.Errorf("%w: vocabulary index %d found at position %d", ErrDecode, index, len(words))
		}
		if total < 0 || total > math.MaxUint32 {
			return nil, fmt.Errorf("%w: word '%s' has total %d", ErrDecode, word.Name, total)
		}
		word.Total = uint32(total)
		words = append(words, word)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(words) != info.VocabSize {
		return nil, fmt.Errorf("%w: model '%s' has %d vocabulary rows, want %d", ErrDecode, info.Name, len(words), info.VocabSize)
	}

	for i := range words {
		words[i].Amounts = make([]uint32, len(words))
	}
	return words, nil
}

// RemoveModel deletes a model and all of its vocabulary and transition data
// from the database. Removing a model that does not exist is not an error.
// The operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for remove: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.QueryRowContext(ctx, "SELECT model_id FROM markov_models WHERE model_name = ?", name).Scan(&modelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query for model '%s': %w", name, err)
	}

	if err = clearModel(ctx, tx, modelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", modelID, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
	)

	return tx.Commit()
}

// clearModel deletes the vocabulary and transitions of a model, keeping its
// row in markov_models.
func clearModel(ctx context.Context, tx *sql.Tx, modelID int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM markov_transitions WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove transitions for model %d: %w", modelID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM markov_vocabulary WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove vocabulary for model %d: %w", modelID, err)
	}
	return nil
}
