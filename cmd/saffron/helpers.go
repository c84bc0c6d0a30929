package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/halcyonlabs/saffron/internal/bayes"
	"github.com/halcyonlabs/saffron/internal/embed"
	"github.com/halcyonlabs/saffron/internal/llm"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/pipeline"
	"github.com/halcyonlabs/saffron/internal/rules"
	"github.com/halcyonlabs/saffron/internal/storage"
)

// openStore opens the SQLite store at the configured path, creating parent
// directories as needed.
func openStore() (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "saffron", "saffron.db")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return store, nil
}

// buildOrchestrator wires the full cascade from configuration. The LLM stage
// is included only when a provider is configured; without one the cascade
// simply ends at the statistical stage.
func buildOrchestrator(store *storage.SQLiteStore, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	stages := []pipeline.Stage{
		rules.NewMatcher(store, logger),
		embed.NewMatcher(store, nil, embed.Config{
			FloorThreshold: viper.GetFloat64("embedding.floor_threshold"),
		}, logger),
		bayes.NewClassifier(store, logger),
	}

	if provider := viper.GetString("llm.provider"); provider != "" {
		classifier, err := llm.NewClassifier(llm.Config{
			Provider:    provider,
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			MaxRetries:  viper.GetInt("llm.max_retries"),
			RateLimit:   viper.GetInt("llm.rate_limit"),
			CacheTTL:    viper.GetDuration("llm.cache_ttl"),
			Temperature: viper.GetFloat64("llm.temperature"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
		}, store, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM classifier: %w", err)
		}
		stages = append(stages, classifier)
	}

	return pipeline.New(store, stages, pipeline.Config{
		Thresholds: stageThresholds(),
		MaxWorkers: viper.GetInt("pipeline.max_workers"),
	}, logger), nil
}

// stageThresholds reads per-stage acceptance threshold overrides.
func stageThresholds() map[model.Method]float64 {
	thresholds := make(map[model.Method]float64)
	for key, method := range map[string]model.Method{
		"thresholds.rule":      model.MethodRegexRule,
		"thresholds.vendor":    model.MethodVendorMapping,
		"thresholds.embedding": model.MethodEmbedding,
		"thresholds.ml":        model.MethodML,
		"thresholds.llm":       model.MethodLLM,
	} {
		if viper.IsSet(key) {
			thresholds[method] = viper.GetFloat64(key)
		}
	}
	return thresholds
}
