package storage

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "did:key:test",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestConfigValidate(t *testing.T) {
	validS3 := func() *S3Config {
		return &S3Config{BucketName: "b", Region: "eu-west-1", AccessKey: "a", SecretKey: "s"}
	}

	tests := []struct {
		name    string
		cfg     *Config
		field   string
		wantErr bool
	}{
		{name: "empty", cfg: &Config{}, wantErr: true},
		{name: "s3 ok", cfg: &Config{S3: validS3()}},
		{name: "s3 missing secret", cfg: &Config{S3: &S3Config{BucketName: "b", Region: "r", AccessKey: "a"}}, field: "secret_key", wantErr: true},
		{name: "s3 missing bucket", cfg: &Config{S3: &S3Config{Region: "r", AccessKey: "a", SecretKey: "s"}}, field: "bucket_name", wantErr: true},
		{name: "s3 bad endpoint", cfg: &Config{S3: &S3Config{BucketName: "b", Region: "r", AccessKey: "a", SecretKey: "s", Endpoint: "localhost:9000"}}, field: "endpoint", wantErr: true},
		{name: "irys defaults", cfg: &Config{Irys: &IrysConfig{}}},
		{name: "irys bad provider", cfg: &Config{Irys: &IrysConfig{ProviderURL: "ftp://rpc"}}, field: "provider_url", wantErr: true},
		{name: "irys negative multiplier", cfg: &Config{Irys: &IrysConfig{PriceMultiplier: -1}}, field: "price_multiplier", wantErr: true},
		{name: "irys bad rate", cfg: &Config{Irys: &IrysConfig{RateLimit: "ten per second"}}, field: "rate_limit", wantErr: true},
		{name: "nft.storage no token", cfg: &Config{NFTStorage: &NFTStorageConfig{}}, field: "token", wantErr: true},
		{name: "nft.storage opaque token", cfg: &Config{NFTStorage: &NFTStorageConfig{Token: "abc", RateLimit: "10-S"}}},
		{name: "shdw no account", cfg: &Config{SHDW: &SHDWConfig{}}, field: "storage_account", wantErr: true},
		{name: "shdw create without size", cfg: &Config{SHDW: &SHDWConfig{CreateIfMissing: true}}, field: "default_size_mb", wantErr: true},
		{name: "shdw create", cfg: &Config{SHDW: &SHDWConfig{CreateIfMissing: true, DefaultSizeMB: 100}}},
		{name: "two variants", cfg: &Config{S3: validS3(), Irys: &IrysConfig{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			if tt.field != "" {
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}

func TestConfigKind(t *testing.T) {
	assert.Equal(t, KindNFTStorage, (&Config{NFTStorage: &NFTStorageConfig{}}).Kind())
	assert.Equal(t, Kind(""), (&Config{}).Kind())
	assert.Equal(t, Kind(""), (&Config{S3: &S3Config{}, SHDW: &SHDWConfig{}}).Kind())
}

func TestNFTStorageTokenExpiry(t *testing.T) {
	expired := &Config{NFTStorage: &NFTStorageConfig{Token: signedToken(t, time.Now().Add(-time.Hour))}}
	err := expired.Validate()
	assert.ErrorIs(t, err, ErrTokenExpired)

	valid := &Config{NFTStorage: &NFTStorageConfig{Token: signedToken(t, time.Now().Add(time.Hour))}}
	assert.NoError(t, valid.Validate())
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := (&Config{NFTStorage: &NFTStorageConfig{}}).Validate()
	assert.EqualError(t, err, "storage config: nft_storage.token: required")

	err = (&Config{}).Validate()
	assert.EqualError(t, err, "storage config: no storage backend configured")
}

func TestWithDefaults(t *testing.T) {
	irys := (&IrysConfig{}).withDefaults()
	assert.Equal(t, DefaultIrysAddress, irys.Address)
	assert.Equal(t, DefaultIrysGateway, irys.Gateway)
	assert.Equal(t, DefaultIrysPriceMultiplier, irys.PriceMultiplier)

	nft := (&NFTStorageConfig{Token: "t", BatchSize: 3}).withDefaults()
	assert.Equal(t, 3, nft.BatchSize)
	assert.Equal(t, DefaultNFTStorageGateway, nft.GatewayHost)

	shdw := (&SHDWConfig{}).withDefaults()
	assert.Equal(t, DefaultSHDWConcurrentUploads, shdw.ConcurrentUploads)
}
