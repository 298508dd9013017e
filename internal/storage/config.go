package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/coremint/coremint/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ulule/limiter/v3"
)

// Config holds the storage section. Exactly one variant may be set.
type Config struct {
	S3         *S3Config         `mapstructure:"s3" json:"s3,omitempty"`
	Irys       *IrysConfig       `mapstructure:"irys" json:"irys,omitempty"`
	NFTStorage *NFTStorageConfig `mapstructure:"nft_storage" json:"nft_storage,omitempty"`
	SHDW       *SHDWConfig       `mapstructure:"shdw" json:"shdw,omitempty"`
}

// Kind reports the configured variant, or "" when zero or several are set.
func (c *Config) Kind() Kind {
	kinds := c.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (c *Config) kinds() []Kind {
	if c == nil {
		return nil
	}
	var kinds []Kind
	if c.S3 != nil {
		kinds = append(kinds, KindS3)
	}
	if c.Irys != nil {
		kinds = append(kinds, KindIrys)
	}
	if c.NFTStorage != nil {
		kinds = append(kinds, KindNFTStorage)
	}
	if c.SHDW != nil {
		kinds = append(kinds, KindSHDW)
	}
	return kinds
}

func (c *Config) Validate() error {
	kinds := c.kinds()
	switch len(kinds) {
	case 0:
		return &ConfigurationError{Err: ErrNoBackend}
	case 1:
	default:
		return &ConfigurationError{Err: fmt.Errorf("%w: %v", ErrMultipleBackends, kinds)}
	}

	switch kinds[0] {
	case KindS3:
		return c.S3.Validate()
	case KindIrys:
		return c.Irys.Validate()
	case KindNFTStorage:
		return c.NFTStorage.Validate()
	case KindSHDW:
		return c.SHDW.Validate()
	}
	return nil
}

type S3Config struct {
	BucketName    string `mapstructure:"bucket_name" json:"bucket_name"`
	Region        string `mapstructure:"region" json:"region"`
	AccessKey     string `mapstructure:"access_key" json:"access_key"`
	SecretKey     string `mapstructure:"secret_key" json:"secret_key"`
	Endpoint      string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	PublicURL     string `mapstructure:"public_url" json:"public_url,omitempty"`
	KeyPrefix     string `mapstructure:"key_prefix" json:"key_prefix,omitempty"`
	UseAccelerate bool   `mapstructure:"use_accelerate" json:"use_accelerate,omitempty"`
	CreateBucket  bool   `mapstructure:"create_bucket" json:"create_bucket,omitempty"`
	Concurrency   int    `mapstructure:"concurrency" json:"concurrency,omitempty"`
	Payer         string `mapstructure:"payer" json:"payer,omitempty"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return configErr(KindS3, "bucket_name", "required")
	}
	if c.Region == "" {
		return configErr(KindS3, "region", "required")
	}
	if c.AccessKey == "" {
		return configErr(KindS3, "access_key", "required")
	}
	if c.SecretKey == "" {
		return configErr(KindS3, "secret_key", "required")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return configErr(KindS3, "endpoint", "invalid URL %q", c.Endpoint)
	}
	if c.PublicURL != "" && !utils.IsValidURL(c.PublicURL) {
		return configErr(KindS3, "public_url", "invalid URL %q", c.PublicURL)
	}
	if c.Concurrency < 0 {
		return configErr(KindS3, "concurrency", "must not be negative")
	}
	return nil
}

const (
	DefaultIrysAddress         = "https://node1.irys.xyz"
	DefaultIrysGateway         = "https://gateway.irys.xyz"
	DefaultIrysPriceMultiplier = 1.1
	DefaultIrysTimeout         = 60 * time.Second
)

type IrysConfig struct {
	Address         string        `mapstructure:"address" json:"address,omitempty"`
	Gateway         string        `mapstructure:"gateway" json:"gateway,omitempty"`
	ProviderURL     string        `mapstructure:"provider_url" json:"provider_url,omitempty"`
	Timeout         time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
	PriceMultiplier float64       `mapstructure:"price_multiplier" json:"price_multiplier,omitempty"`
	RateLimit       string        `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	Payer           string        `mapstructure:"payer" json:"payer,omitempty"`
}

func (c *IrysConfig) Validate() error {
	if c.Address != "" && !utils.IsValidURL(c.Address) {
		return configErr(KindIrys, "address", "invalid URL %q", c.Address)
	}
	if c.Gateway != "" && !utils.IsValidURL(c.Gateway) {
		return configErr(KindIrys, "gateway", "invalid URL %q", c.Gateway)
	}
	if c.ProviderURL != "" && !utils.IsValidURL(c.ProviderURL) {
		return configErr(KindIrys, "provider_url", "invalid URL %q", c.ProviderURL)
	}
	if c.Timeout < 0 {
		return configErr(KindIrys, "timeout", "must not be negative")
	}
	if c.PriceMultiplier < 0 {
		return configErr(KindIrys, "price_multiplier", "must not be negative")
	}
	return validateRateLimit(KindIrys, c.RateLimit)
}

func (c *IrysConfig) withDefaults() IrysConfig {
	out := *c
	if out.Address == "" {
		out.Address = DefaultIrysAddress
	}
	if out.Gateway == "" {
		out.Gateway = DefaultIrysGateway
	}
	if out.Timeout == 0 {
		out.Timeout = DefaultIrysTimeout
	}
	if out.PriceMultiplier == 0 {
		out.PriceMultiplier = DefaultIrysPriceMultiplier
	}
	return out
}

const (
	DefaultNFTStorageEndpoint  = "https://api.nft.storage"
	DefaultNFTStorageGateway   = "nftstorage.link"
	DefaultNFTStorageBatchSize = 50
)

type NFTStorageConfig struct {
	Token          string `mapstructure:"token" json:"token"`
	Endpoint       string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	GatewayHost    string `mapstructure:"gateway_host" json:"gateway_host,omitempty"`
	BatchSize      int    `mapstructure:"batch_size" json:"batch_size,omitempty"`
	UseGatewayURLs bool   `mapstructure:"use_gateway_urls" json:"use_gateway_urls,omitempty"`
	RateLimit      string `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	Payer          string `mapstructure:"payer" json:"payer,omitempty"`
}

func (c *NFTStorageConfig) Validate() error {
	if c.Token == "" {
		return configErr(KindNFTStorage, "token", "required")
	}
	if err := checkTokenExpiry(c.Token, time.Now()); err != nil {
		return &ConfigurationError{Backend: KindNFTStorage, Field: "token", Err: err}
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return configErr(KindNFTStorage, "endpoint", "invalid URL %q", c.Endpoint)
	}
	if c.BatchSize < 0 {
		return configErr(KindNFTStorage, "batch_size", "must not be negative")
	}
	return validateRateLimit(KindNFTStorage, c.RateLimit)
}

func (c *NFTStorageConfig) withDefaults() NFTStorageConfig {
	out := *c
	if out.Endpoint == "" {
		out.Endpoint = DefaultNFTStorageEndpoint
	}
	if out.GatewayHost == "" {
		out.GatewayHost = DefaultNFTStorageGateway
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultNFTStorageBatchSize
	}
	return out
}

var ErrTokenExpired = errors.New("token expired")

// checkTokenExpiry rejects JWT tokens whose exp claim is in the past.
// Opaque (non-JWT) tokens are accepted as is.
func checkTokenExpiry(token string, now time.Time) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

const (
	DefaultSHDWEndpoint          = "https://shadow-storage.genesysgo.net"
	DefaultSHDWConcurrentUploads = 2
)

type SHDWConfig struct {
	Endpoint          string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	StorageAccount    string `mapstructure:"storage_account" json:"storage_account,omitempty"`
	CreateIfMissing   bool   `mapstructure:"create_if_missing" json:"create_if_missing,omitempty"`
	DefaultSizeMB     int    `mapstructure:"default_size_mb" json:"default_size_mb,omitempty"`
	Overwrite         bool   `mapstructure:"overwrite" json:"overwrite,omitempty"`
	ConcurrentUploads int    `mapstructure:"concurrent_uploads" json:"concurrent_uploads,omitempty"`
	RateLimit         string `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	Payer             string `mapstructure:"payer" json:"payer,omitempty"`
}

func (c *SHDWConfig) Validate() error {
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return configErr(KindSHDW, "endpoint", "invalid URL %q", c.Endpoint)
	}
	if c.StorageAccount == "" && !c.CreateIfMissing {
		return configErr(KindSHDW, "storage_account", "required unless create_if_missing is set")
	}
	if c.CreateIfMissing && c.DefaultSizeMB <= 0 {
		return configErr(KindSHDW, "default_size_mb", "must be positive when create_if_missing is set")
	}
	if c.ConcurrentUploads < 0 {
		return configErr(KindSHDW, "concurrent_uploads", "must not be negative")
	}
	return validateRateLimit(KindSHDW, c.RateLimit)
}

func (c *SHDWConfig) withDefaults() SHDWConfig {
	out := *c
	if out.Endpoint == "" {
		out.Endpoint = DefaultSHDWEndpoint
	}
	if out.ConcurrentUploads == 0 {
		out.ConcurrentUploads = DefaultSHDWConcurrentUploads
	}
	return out
}

func validateRateLimit(kind Kind, rate string) error {
	if rate == "" {
		return nil
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return &ConfigurationError{Backend: kind, Field: "rate_limit", Err: err}
	}
	return nil
}
