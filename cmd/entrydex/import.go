package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	domview "github.com/kailas-cloud/entrydex/internal/domain/view"
	logpkg "github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/repository/seed"
	viewrepo "github.com/kailas-cloud/entrydex/internal/repository/view"
)

const importBatchSize = 500

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load entries into the Redis store",
	Long: `import reads a JSON array of entries and writes them to Redis, creating the
search index of the form first. The form must be declared in the views file
so its fields can be indexed.

Each entry looks like:

  {"id": 7, "status": "active", "is_approved": true,
   "date_created": "2024-02-01 10:00:00",
   "fields": {"1": "Clara Thompson", "4": ["vip", "new"]}}`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("form", "", "form id the entries belong to (required)")
	_ = importCmd.MarkFlagRequired("form")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "redis" {
		return fmt.Errorf("import requires the redis driver, got %q", cfg.Database.Driver)
	}
	logger, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	formID, _ := cmd.Flags().GetString("form")
	views, err := viewrepo.LoadFile(cfg.Views.Path)
	if err != nil {
		return fmt.Errorf("load views: %w", err)
	}
	var form *domview.Form
	for _, f := range views.Forms() {
		if f.ID() == formID {
			form = f
			break
		}
	}
	if form == nil {
		return fmt.Errorf("form %s is not declared in %s", formID, cfg.Views.Path)
	}

	entries, err := readImportFile(args[0], formID)
	if err != nil {
		return err
	}

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	repo, store, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := repo.EnsureIndex(ctx, form); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	for start := 0; start < len(entries); start += importBatchSize {
		end := min(start+importBatchSize, len(entries))
		if err := repo.Upsert(ctx, entries[start:end]); err != nil {
			return fmt.Errorf("import entries %d-%d: %w", start, end-1, err)
		}
		logger.Debug("Import batch written", zap.Int("from", start), zap.Int("to", end))
	}

	logger.Info("Import finished",
		zap.String("form_id", formID),
		zap.Int("entries", len(entries)),
	)
	return nil
}

func readImportFile(path, formID string) ([]entry.Entry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	entries, err := seed.Read(f, formID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}
