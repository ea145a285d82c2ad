package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/spf13/cobra"
)

// cliOptions holds the values of the flags shared by every command.
type cliOptions struct {
	configPath     string
	dictionaryPath string
	inputPath      string
	savePath       string
	dbPath         string
	modelName      string
	logLevel       string
	amount         int
	temperature    float64
	topK           int
}

// session is the resolved state of one command invocation.
type session struct {
	opts   *cliOptions
	config *Config
	logger *slog.Logger
	store  *markov.Store
	close  func()
}

// NewRootCmd builds the wordchain command tree.
func NewRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "wordchain [flags] text",
		Short: "Continue a phrase with a word-level Markov chain",
		Long: `wordchain trains a first-order Markov chain on the words of a text file
and uses it to continue the given text.

Train from a text file with -i, or load a saved dictionary with -d, or load a
model stored in a SQLite database with --db and --model. With -s the trained
dictionary is saved instead of generating text.`,
		Args:         cobra.ArbitraryArgs,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			return s.run(cmd, strings.Join(args, " "))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a JSON config file (created with defaults if missing)")
	flags.StringVarP(&opts.dictionaryPath, "dictionary", "d", "", "path to a dictionary of words with probabilities")
	flags.StringVarP(&opts.inputPath, "input", "i", "", "path to a plaintext file with words")
	flags.StringVarP(&opts.savePath, "save", "s", "", "save the dictionary into the specified file instead of generating text")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite data source holding named models")
	flags.StringVar(&opts.modelName, "model", "", "name of the model inside the --db database")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&opts.amount, "amount", "a", 10, "amount of words to predict")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 1.0, "sampling temperature, 0 or less always picks the most frequent word")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "only sample from the k most frequent successors (0 disables)")

	cmd.AddCommand(newStatsCmd(opts), newPruneCmd(opts))

	return cmd
}

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print statistics about a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			if s.store != nil && s.opts.modelName == "" && s.opts.inputPath == "" && s.opts.dictionaryPath == "" {
				return s.printModelInfos(cmd)
			}

			model, err := s.model(cmd.Context())
			if err != nil {
				return err
			}
			stats := model.Stats()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "vocabulary: %d\n", stats.VocabSize)
			_, _ = fmt.Fprintf(out, "chains: %d\n", stats.TotalChains)
			_, _ = fmt.Fprintf(out, "transitions: %d\n", stats.TotalFrequency)
			_, _ = fmt.Fprintf(out, "dead ends: %d\n", stats.DeadEnds)
			return nil
		},
	}
}

func newPruneCmd(opts *cliOptions) *cobra.Command {
	var minFreq uint32

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove rare transitions from a model",
		Long: `prune loads a model, removes every transition seen at most --min-freq
times, and saves the result to -s, or back into --db under --model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			if s.opts.savePath == "" && s.store == nil {
				return errors.New("prune needs a destination: -s or --db with --model")
			}

			model, err := s.model(cmd.Context())
			if err != nil {
				return err
			}
			pruned := model.Prune(minFreq)
			before, after := model.Stats(), pruned.Stats()
			s.logger.Info("Model pruned",
				slog.Int("min_frequency", int(minFreq)),
				slog.Int("chains_removed", before.TotalChains-after.TotalChains),
			)
			return s.persist(cmd.Context(), pruned)
		},
	}
	cmd.Flags().Uint32Var(&minFreq, "min-freq", 1, "remove transitions seen this many times or fewer")

	return cmd
}

// newSession loads the config, applies flag overrides, validates flag
// combinations, and opens the model database when one is configured.
func newSession(cmd *cobra.Command, opts *cliOptions) (*session, error) {
	config := DefaultConfig()
	if opts.configPath != "" {
		var err error
		if config, err = LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		config.LogLevel = opts.logLevel
	}
	if flags.Changed("db") {
		config.DatabasePath = opts.dbPath
	}
	if flags.Changed("model") {
		config.ModelName = opts.modelName
	}
	if flags.Changed("amount") {
		config.Amount = opts.amount
	}
	if flags.Changed("temperature") {
		config.Temperature = opts.temperature
	}
	if flags.Changed("top-k") {
		config.TopK = opts.topK
	}
	opts.dbPath = config.DatabasePath
	opts.modelName = config.ModelName

	if err := validateOptions(opts, config); err != nil {
		return nil, err
	}

	s := &session{
		opts:   opts,
		config: config,
		logger: newLogger(config.LogLevel, cmd.ErrOrStderr()),
		close:  func() {},
	}

	if opts.dbPath != "" {
		db, err := initDB(opts.dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = markov.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to setup markov schema: %w", err)
		}
		store, err := markov.NewStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error creating model store: %w", err)
		}
		store.SetLogger(s.logger)
		s.store = store
		s.close = func() {
			store.Close()
			if err := db.Close(); err != nil {
				s.logger.Error("Failed to close database", "error", err)
			}
		}
	}

	return s, nil
}

// validateOptions enforces the flag combinations the command accepts.
func validateOptions(opts *cliOptions, config *Config) error {
	if opts.inputPath == "" && opts.dictionaryPath == "" && opts.dbPath == "" {
		return errors.New("-i, -d or --db is required")
	}
	if opts.inputPath != "" && opts.dictionaryPath != "" {
		return errors.New("-i and -d cannot be used at the same time")
	}
	if opts.modelName != "" && opts.dbPath == "" {
		return errors.New("--model requires --db")
	}
	if config.Amount < 0 {
		return fmt.Errorf("amount must not be negative, got %d", config.Amount)
	}
	return nil
}

// run is the root command: train or load a model, optionally persist it, and
// continue text with it.
func (s *session) run(cmd *cobra.Command, text string) error {
	ctx := cmd.Context()
	if s.opts.savePath != "" && s.opts.dictionaryPath != "" {
		return errors.New("-s and -d cannot be used at the same time")
	}
	if s.opts.savePath != "" && s.opts.inputPath == "" {
		return errors.New("-s requires -i")
	}
	if s.opts.dbPath != "" && s.opts.modelName == "" {
		return errors.New("--db requires --model")
	}

	model, err := s.model(ctx)
	if err != nil {
		return err
	}

	saved := false
	if s.opts.inputPath != "" && (s.opts.savePath != "" || s.store != nil) {
		if err = s.persist(ctx, model); err != nil {
			return err
		}
		saved = true
	}
	if s.opts.savePath != "" {
		return nil
	}

	if text == "" {
		if saved {
			return nil
		}
		return errors.New("text not found")
	}

	output, err := model.GenerateFromString(text, s.config.Amount, markov.NewDefaultTokenizer(),
		markov.WithTemperature(s.config.Temperature),
		markov.WithTopK(s.config.TopK),
	)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
	return err
}

// model trains, loads, or fetches the model selected by the flags.
func (s *session) model(ctx context.Context) (*markov.Model, error) {
	switch {
	case s.opts.inputPath != "":
		file, err := os.Open(s.opts.inputPath)
		if err != nil {
			return nil, fmt.Errorf("cant read %s: %w", s.opts.inputPath, err)
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)

		model, err := markov.Train(file, markov.NewDefaultTokenizer())
		if err != nil {
			return nil, fmt.Errorf("training from %s failed: %w", s.opts.inputPath, err)
		}
		s.logger.Debug("Model trained", "input", s.opts.inputPath, "vocab_size", model.Len())
		return model, nil

	case s.opts.dictionaryPath != "":
		model, err := markov.LoadFile(s.opts.dictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("could not load dictionary at %s: %w", s.opts.dictionaryPath, err)
		}
		return model, nil

	case s.store != nil && s.opts.modelName != "":
		return s.store.LoadModel(ctx, s.opts.modelName)

	default:
		return nil, errors.New("--db requires --model")
	}
}

// persist writes model to the -s file, or to the database when no file is given.
func (s *session) persist(ctx context.Context, model *markov.Model) error {
	if s.opts.savePath != "" {
		if err := model.SaveFile(s.opts.savePath); err != nil {
			return err
		}
		s.logger.Info("Dictionary saved", "path", s.opts.savePath, "vocab_size", model.Len())
		return nil
	}
	if s.store == nil || s.opts.modelName == "" {
		return errors.New("--db requires --model")
	}
	return s.store.SaveModel(ctx, s.opts.modelName, model)
}

func (s *session) printModelInfos(cmd *cobra.Command) error {
	models, err := s.store.GetModelInfos(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to retrieve models: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(models)) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d words\n", name, models[name].VocabSize)
	}
	return nil
}
