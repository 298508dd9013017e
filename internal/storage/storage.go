// Package storage uploads GenericFiles to one of several remote services and returns
// the URI at which each becomes retrievable. Exactly one backend variant is selected
// from configuration; the selection is fixed for the lifetime of the backend.
package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/wallet"
	"golang.org/x/sync/errgroup"
)

type Kind string

const (
	KindS3         Kind = "s3"
	KindIrys       Kind = "irys"
	KindNFTStorage Kind = "nft_storage"
	KindSHDW       Kind = "shdw"
)

// ProgressFunc receives upload progress in percent, 0 to 100.
type ProgressFunc func(percent float64)

type UploadOptions struct {
	OnProgress ProgressFunc
}

func (o *UploadOptions) progress(percent float64) {
	if o != nil && o.OnProgress != nil {
		o.OnProgress(percent)
	}
}

// Backend is safe for concurrent use. Cancelling ctx aborts in-flight requests for
// backends that honour it.
type Backend interface {
	Kind() Kind

	// Upload stores a single file and returns its URI
	Upload(ctx context.Context, file *genericfile.File, opts *UploadOptions) (string, error)

	// UploadMany stores files and returns their URIs in input order. Any failure fails the call.
	UploadMany(ctx context.Context, files []*genericfile.File, opts *UploadOptions) ([]string, error)

	// UploadJSON wraps v as a metadata.json file and uploads it
	UploadJSON(ctx context.Context, v any, opts *UploadOptions) (string, error)
}

// New validates cfg and builds the single configured backend. signer is the primary
// wallet; a variant's own payer takes precedence when set. No network calls are made
// here, provisioning happens on first upload.
func New(ctx context.Context, cfg *Config, signer wallet.Signer) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch kind := cfg.Kind(); kind {
	case KindS3:
		payer, err := resolvePayer(kind, cfg.S3.Payer, signer, false)
		if err != nil {
			return nil, err
		}
		return newS3Backend(ctx, cfg.S3, payer)
	case KindIrys:
		payer, err := resolvePayer(kind, cfg.Irys.Payer, signer, true)
		if err != nil {
			return nil, err
		}
		return newIrysBackend(cfg.Irys, payer)
	case KindNFTStorage:
		payer, err := resolvePayer(kind, cfg.NFTStorage.Payer, signer, false)
		if err != nil {
			return nil, err
		}
		return newNFTStorageBackend(cfg.NFTStorage, payer)
	case KindSHDW:
		payer, err := resolvePayer(kind, cfg.SHDW.Payer, signer, true)
		if err != nil {
			return nil, err
		}
		return newSHDWBackend(cfg.SHDW, payer)
	default:
		return nil, &ConfigurationError{Err: ErrNoBackend}
	}
}

// resolvePayer returns the delegated payer when configured, else the primary signer.
func resolvePayer(kind Kind, payer string, primary wallet.Signer, required bool) (wallet.Signer, error) {
	if payer != "" {
		kp, err := wallet.Parse(payer)
		if err != nil {
			return nil, &ConfigurationError{Backend: kind, Field: "payer", Err: err}
		}
		return kp, nil
	}
	if primary == nil && required {
		return nil, &ConfigurationError{Backend: kind, Field: "payer", Err: ErrSignerRequired}
	}
	return primary, nil
}

// uploadAll runs upload for every file with at most limit in flight and keeps the
// URIs in input order.
func uploadAll(ctx context.Context, files []*genericfile.File, limit int, opts *UploadOptions,
	upload func(context.Context, *genericfile.File, *UploadOptions) (string, error),
) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 1
	}

	uris := make([]string, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			uri, err := upload(gctx, file, nil)
			if err != nil {
				return fmt.Errorf("upload %q: %w", file.Name(), err)
			}
			uris[i] = uri
			opts.progress(float64(done.Add(1)) * 100 / float64(len(files)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uris, nil
}

func uploadJSON(ctx context.Context, b Backend, v any, opts *UploadOptions) (string, error) {
	file, err := genericfile.FromJSON(v)
	if err != nil {
		return "", err
	}
	return b.Upload(ctx, file, opts)
}
