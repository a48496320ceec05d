package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/config"
	"github.com/xxxsen/pdfqa/internal/repo"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pdfqa",
		Short: "question answering over uploaded documents",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run pdfqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(cfg, a)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "extract, chunk, embed and index a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.qa.Upload(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask <doc_id> <question>",
		Short: "answer a question from an indexed document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.qa.Ask(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	var olderThan time.Duration
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "manage the embedding cache",
	}
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "delete cached embeddings older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			sqlDB, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB == nil {
				return fmt.Errorf("database is not configured")
			}
			defer sqlDB.Close()
			cutoff := time.Now().Add(-olderThan).Unix()
			n, err := repo.NewEmbeddingCacheRepo(sqlDB).DeleteBefore(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("prune embedding cache: %w", err)
			}
			logutil.GetLogger(cmd.Context()).Info("embedding cache pruned", zap.Int64("rows", n), zap.Duration("older_than", olderThan))
			return nil
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of entries to remove")
	cacheCmd.AddCommand(pruneCmd)

	rootCmd.AddCommand(runCmd, ingestCmd, askCmd, cacheCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
