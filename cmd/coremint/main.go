package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coremint/coremint/internal/config"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/version"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:     "coremint",
	Short:   "Upload asset media and metadata to decentralized storage",
	Version: version.Detailed(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func init() {
	addGlobalFlags(rootCmd)
}

func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", fmt.Sprintf("config file (default %s)", config.DefaultConfigPath))
	flags.StringP("keypair", "k", "", "keypair file or base58 secret key")
	flags.String("rpc", "", "RPC endpoint, overrides the one derived from --env")
	flags.String("env", "", "cluster: mainnet-beta, devnet, testnet or localnet")
	flags.BoolP("verbose", "v", false, "debug logging on stdout")
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	os.Exit(run(config.DefaultLogFilePath, os.Args[1:]))
}

// run executes the CLI and returns the process exit code. Log sinks are flushed and
// closed before it returns.
func run(logFile string, args []string) int {
	if err := utils.EnsureParent(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		return 1
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return 1
	}
	defer file.Close()

	logLevel.Set(slog.LevelInfo)
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	logInterceptor := utils.NewLogInterceptor(file)
	defer logInterceptor.Close()
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor stamps each line
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))

	rootCmd.SetArgs(args)
	// SIGINT is handled per command so a running batch can drain its chunk
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

// flagKeys maps viper keys to the flags that override them.
var flagKeys = map[string]string{
	"keypair":           "keypair",
	"rpc":               "rpc",
	"env":               "env",
	"upload.chunk_size": "chunk-size",
	"upload.out_dir":    "out",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, path); err != nil {
		return nil, err
	}

	for key, name := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		slog.Debug("config loaded", "path", filepath.Clean(cfg.Path), "env", cfg.Env, "backend", cfg.Storage.Kind())
	}
	return cfg, nil
}
