package storage

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) *wallet.Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kp, err := wallet.FromSecret(priv)
	require.NoError(t, err)
	return kp
}

// countingServer fails the test's expectations by counting every request it sees.
func countingServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNew_DualConfigIsRejectedWithoutNetwork(t *testing.T) {
	srv, hits := countingServer(t)

	cfg := &Config{
		S3: &S3Config{
			BucketName: "assets",
			Region:     "us-east-1",
			AccessKey:  "AKIA",
			SecretKey:  "secret",
			Endpoint:   srv.URL,
		},
		NFTStorage: &NFTStorageConfig{Token: "opaque-token", Endpoint: srv.URL},
	}

	backend, err := New(context.Background(), cfg, newKeypair(t))
	require.Error(t, err)
	assert.Nil(t, backend)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrMultipleBackends)
	assert.Equal(t, int64(0), hits.Load())
}

func TestNew_NoBackend(t *testing.T) {
	_, err := New(context.Background(), &Config{}, nil)
	assert.ErrorIs(t, err, ErrNoBackend)

	_, err = New(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestNew_SelectsVariant(t *testing.T) {
	srv, hits := countingServer(t)
	kp := newKeypair(t)

	tests := []struct {
		name string
		cfg  *Config
		want Kind
	}{
		{"s3", &Config{S3: &S3Config{BucketName: "b", Region: "us-east-1", AccessKey: "a", SecretKey: "s", Endpoint: srv.URL}}, KindS3},
		{"irys", &Config{Irys: &IrysConfig{Address: srv.URL}}, KindIrys},
		{"nft.storage", &Config{NFTStorage: &NFTStorageConfig{Token: "t", Endpoint: srv.URL}}, KindNFTStorage},
		{"shdw", &Config{SHDW: &SHDWConfig{Endpoint: srv.URL, StorageAccount: "acct"}}, KindSHDW},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := New(context.Background(), tt.cfg, kp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend.Kind())
		})
	}
	assert.Equal(t, int64(0), hits.Load(), "construction must not touch the network")
}

func TestNew_PayerResolution(t *testing.T) {
	primary := newKeypair(t)
	delegated := newKeypair(t)

	t.Run("delegated payer wins", func(t *testing.T) {
		cfg := &Config{Irys: &IrysConfig{Payer: base58.Encode(delegated.SecretKey())}}
		backend, err := New(context.Background(), cfg, primary)
		require.NoError(t, err)
		assert.Equal(t, delegated.Address(), backend.(*IrysBackend).payer.Address())
	})

	t.Run("falls back to primary", func(t *testing.T) {
		cfg := &Config{Irys: &IrysConfig{}}
		backend, err := New(context.Background(), cfg, primary)
		require.NoError(t, err)
		assert.Equal(t, primary.Address(), backend.(*IrysBackend).payer.Address())
	})

	t.Run("invalid payer", func(t *testing.T) {
		cfg := &Config{Irys: &IrysConfig{Payer: "not-a-key"}}
		_, err := New(context.Background(), cfg, primary)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "payer", cfgErr.Field)
	})

	t.Run("signing backend without any signer", func(t *testing.T) {
		_, err := New(context.Background(), &Config{Irys: &IrysConfig{}}, nil)
		assert.ErrorIs(t, err, ErrSignerRequired)
	})

	t.Run("s3 needs no signer", func(t *testing.T) {
		cfg := &Config{S3: &S3Config{BucketName: "b", Region: "us-east-1", AccessKey: "a", SecretKey: "s"}}
		_, err := New(context.Background(), cfg, nil)
		assert.NoError(t, err)
	})
}

func TestUploadAll_PreservesOrder(t *testing.T) {
	files := []*genericfile.File{
		genericfile.New([]byte("a"), "a.txt"),
		genericfile.New([]byte("bb"), "b.txt"),
		genericfile.New([]byte("ccc"), "c.txt"),
	}

	var progress []float64
	opts := &UploadOptions{OnProgress: func(p float64) { progress = append(progress, p) }}

	uris, err := uploadAll(context.Background(), files, 1, opts,
		func(_ context.Context, f *genericfile.File, _ *UploadOptions) (string, error) {
			return "mem://" + f.Name(), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"mem://a.txt", "mem://b.txt", "mem://c.txt"}, uris)
	require.Len(t, progress, 3)
	assert.InDelta(t, 100, progress[2], 0.001)
}

func TestUploadAll_FailsWholeCall(t *testing.T) {
	files := []*genericfile.File{
		genericfile.New([]byte("a"), "a.txt"),
		genericfile.New([]byte("b"), "b.txt"),
	}
	_, err := uploadAll(context.Background(), files, 2, nil,
		func(_ context.Context, f *genericfile.File, _ *UploadOptions) (string, error) {
			if f.Name() == "b.txt" {
				return "", ErrUploadFailed
			}
			return "ok", nil
		})
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Contains(t, err.Error(), "b.txt")
}

func TestUploadAll_Empty(t *testing.T) {
	uris, err := uploadAll(context.Background(), nil, 4, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, uris)
}
