// Package config loads the CLI configuration from a config file, COREMINT_ prefixed
// environment variables and flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coremint/coremint/internal/asset"
	"github.com/coremint/coremint/internal/storage"
	"github.com/coremint/coremint/internal/upload"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "COREMINT"
	configFileName = "config"

	EnvMainnet  = "mainnet-beta"
	EnvDevnet   = "devnet"
	EnvTestnet  = "testnet"
	EnvLocalnet = "localnet"
)

var (
	home, _            = os.UserHomeDir()
	DefaultDir         = filepath.Join(home, ".coremint")
	DefaultConfigPath  = filepath.Join(DefaultDir, "config.json")
	DefaultLogFilePath = filepath.Join(DefaultDir, "logs", "coremint.log")
	DefaultJournalPath = filepath.Join(DefaultDir, "journal.db")
	DefaultOutDir      = "out"
)

var rpcEndpoints = map[string]string{
	EnvMainnet:  "https://api.mainnet-beta.solana.com",
	EnvDevnet:   "https://api.devnet.solana.com",
	EnvTestnet:  "https://api.testnet.solana.com",
	EnvLocalnet: "http://127.0.0.1:8899",
}

var ErrUnknownEnv = errors.New("unknown env")

type Config struct {
	Keypair string              `mapstructure:"keypair"`
	RPC     string              `mapstructure:"rpc"`
	Env     string              `mapstructure:"env"`
	Storage storage.Config      `mapstructure:"storage"`
	Upload  UploadConfig        `mapstructure:"upload"`
	Journal JournalConfig       `mapstructure:"journal"`
	Metrics MetricsConfig       `mapstructure:"metrics"`
	Compute asset.ComputeBudget `mapstructure:"compute"`

	// Path is the config file that was read, empty when none was found
	Path string `mapstructure:"-"`
}

type UploadConfig struct {
	ChunkSize int    `mapstructure:"chunk_size"`
	OutDir    string `mapstructure:"out_dir"`
}

type JournalConfig struct {
	Path     string `mapstructure:"path"`
	Disabled bool   `mapstructure:"disabled"`
}

type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path. Metrics are not written when empty.
	Textfile  string `mapstructure:"textfile"`
	Namespace string `mapstructure:"namespace"`
}

// SetDefaults registers defaults on v. Call before binding flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevnet)
	v.SetDefault("upload.chunk_size", upload.DefaultChunkSize)
	v.SetDefault("upload.out_dir", DefaultOutDir)
	v.SetDefault("journal.path", DefaultJournalPath)
	v.SetDefault("metrics.namespace", "coremint")
}

// ReadFile reads path into v, or searches ~/.coremint and ~/.config/coremint when
// path is empty. A missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir)
		v.AddConfigPath(filepath.Join(home, ".config", "coremint"))
		v.SetConfigName(configFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}
	return nil
}

// bindSecrets lets credentials live only in the environment. AutomaticEnv alone does
// not surface keys absent from the config file during Unmarshal.
func bindSecrets(v *viper.Viper) {
	for _, key := range []string{
		"keypair",
		"storage.s3.access_key",
		"storage.s3.secret_key",
		"storage.nft_storage.token",
	} {
		_ = v.BindEnv(key)
	}
}

// Load decodes v into a Config, fills derived values and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if used := v.ConfigFileUsed(); utils.FileExists(used) {
		cfg.Path = used
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Env == "" {
		c.Env = EnvDevnet
	}
	endpoint, ok := rpcEndpoints[c.Env]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownEnv, c.Env)
	}
	if c.RPC == "" {
		c.RPC = endpoint
	} else if !utils.IsValidURL(c.RPC) {
		return fmt.Errorf("invalid rpc url %q", c.RPC)
	}

	if c.Upload.ChunkSize <= 0 {
		c.Upload.ChunkSize = upload.DefaultChunkSize
	}
	if c.Upload.OutDir == "" {
		c.Upload.OutDir = DefaultOutDir
	}
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
	if !c.Journal.Disabled {
		path, err := utils.ResolvePath(c.Journal.Path)
		if err != nil {
			return fmt.Errorf("journal path: %w", err)
		}
		c.Journal.Path = path
	}

	// Irys prices and funds through the cluster RPC unless told otherwise
	if c.Storage.Irys != nil && c.Storage.Irys.ProviderURL == "" {
		c.Storage.Irys.ProviderURL = c.RPC
	}

	return nil
}

// Signer loads the primary wallet. A nil signer without error means none is configured.
func (c *Config) Signer() (wallet.Signer, error) {
	if c.Keypair == "" {
		return nil, nil
	}
	kp, err := wallet.Parse(c.Keypair)
	if err != nil {
		return nil, fmt.Errorf("keypair: %w", err)
	}
	return kp, nil
}
