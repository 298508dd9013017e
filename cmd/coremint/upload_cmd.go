package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/coremint/coremint/internal/config"
	"github.com/coremint/coremint/internal/journal"
	"github.com/coremint/coremint/internal/storage"
	"github.com/coremint/coremint/internal/upload"
	"github.com/coremint/coremint/internal/utils"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newUploadCmd())
}

func newUploadCmd() *cobra.Command {
	var (
		requestsPath string
		globs        []string
		ignoreFile   string
		noLog        bool
		failOnError  bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a batch of local files and URLs to the configured storage backend",
		Example: `  coremint upload --requests batch.json
  coremint upload --glob 'art/**/*.png' --ignore-file .mintignore --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			requests, err := collectRequests(requestsPath, globs, ignoreFile)
			if err != nil {
				return err
			}

			signer, err := cfg.Signer()
			if err != nil {
				return err
			}
			backend, err := storage.New(cmd.Context(), &cfg.Storage, signer)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			report, err := runUpload(cmd.Context(), cfg, backend, requests, !noLog, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failOnError && len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d uploads failed", len(report.Failed), len(requests))
			}
			return nil
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&requestsPath, "requests", "r", "", "JSON or YAML file with an array of upload requests")
	cmd.Flags().StringSliceVarP(&globs, "glob", "g", nil, "upload files matching the pattern, may be repeated")
	cmd.Flags().StringVar(&ignoreFile, "ignore-file", "", "gitignore style file excluding --glob matches")
	cmd.Flags().StringP("out", "o", config.DefaultOutDir, "directory for the run report")
	cmd.Flags().Int("chunk-size", upload.DefaultChunkSize, "uploads in flight per chunk")
	cmd.Flags().BoolVar(&noLog, "no-log", false, "do not write the run report")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit with status 1 when any upload fails")
	return cmd
}

// runUpload runs one batch with the journal and metrics from cfg wired in and writes
// the report unless writeLog is false.
func runUpload(ctx context.Context, cfg *config.Config, backend storage.Backend, requests []upload.Request, writeLog bool, out io.Writer) (*upload.Report, error) {
	registry := prometheus.NewRegistry()
	observer, err := upload.NewPrometheusObserver(cfg.Metrics.Namespace, registry)
	if err != nil {
		return nil, err
	}

	opts := []upload.Option{
		upload.WithChunkSize(cfg.Upload.ChunkSize),
		upload.WithObserver(observer),
	}

	if !cfg.Journal.Disabled {
		j := journal.New(cfg.Journal.Path)
		if err := j.Open(); err != nil {
			return nil, err
		}
		defer j.Close()
		opts = append(opts, upload.WithRecorder(j))
	}

	token, stop := upload.WatchInterrupt(ctx)
	defer stop()

	started := time.Now()
	report := upload.NewOrchestrator(backend, opts...).Run(ctx, requests, token)
	took := time.Since(started)
	stop()

	if cfg.Metrics.Textfile != "" {
		if err := upload.WriteTextfile(cfg.Metrics.Textfile, registry); err != nil {
			slog.Warn("metrics not written", "error", err)
		}
	}

	var reportPath string
	if writeLog {
		reportPath, err = writeReport(cfg.Upload.OutDir, report)
		if err != nil {
			return report, err
		}
	}

	printSummary(out, report, took, reportPath)
	return report, nil
}

func writeReport(dir string, report *upload.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, "upload-"+report.RunID+".json")
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	slog.Info("report written", "path", path)
	return path, nil
}
