package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/imroc/req/v3"
	"github.com/mr-tron/base58"
)

// SHDWBackend uploads into a storage account on a drive-style service. The account
// is looked up, or created when allowed, on first use.
type SHDWBackend struct {
	client   *req.Client
	config   SHDWConfig
	payer    wallet.Signer
	throttle *throttle

	mu      sync.Mutex
	account string
}

type shdwAccountRequest struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	Owner     string `json:"owner"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type shdwAccountResponse struct {
	StorageAccount string `json:"storage_account"`
	ShdwBucket     string `json:"shdw_bucket"`
}

type shdwUploadResponse struct {
	FinalizedLocations []string `json:"finalized_locations"`
	Message            string   `json:"message"`
	UploadErrors       []struct {
		File  string `json:"file"`
		Error string `json:"error"`
	} `json:"upload_errors"`
}

type shdwError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *shdwError) apiError() *APIError {
	return &APIError{Code: e.Code, Message: e.Message}
}

func newSHDWBackend(cfg *SHDWConfig, payer wallet.Signer) (*SHDWBackend, error) {
	c := cfg.withDefaults()
	t, err := newThrottle(string(KindSHDW), c.RateLimit)
	if err != nil {
		return nil, &ConfigurationError{Backend: KindSHDW, Field: "rate_limit", Err: err}
	}
	return &SHDWBackend{
		client:   newHTTPClient(0).SetBaseURL(c.Endpoint),
		config:   c,
		payer:    payer,
		throttle: t,
	}, nil
}

func (b *SHDWBackend) Kind() Kind { return KindSHDW }

func (b *SHDWBackend) Upload(ctx context.Context, file *genericfile.File, opts *UploadOptions) (string, error) {
	account, err := b.storageAccount(ctx)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(file.Bytes())
	message := fmt.Sprintf("coremint upload\nstorage account: %s\nsha256: %s", account, hex.EncodeToString(digest[:]))
	sig, err := b.payer.Sign([]byte(message))
	if err != nil {
		return "", fmt.Errorf("shdw sign: %w", err)
	}

	if err := b.throttle.Wait(ctx); err != nil {
		return "", err
	}

	var res shdwUploadResponse
	var apiErr shdwError

	opts.progress(0)
	resp, err := b.client.R().
		SetContext(ctx).
		SetFileBytes("file", file.Key(), file.Bytes()).
		SetFormData(map[string]string{
			"storage_account": account,
			"signer":          b.payer.Address(),
			"message":         message,
			"signature":       base58.Encode(sig),
			"overwrite":       strconv.FormatBool(b.config.Overwrite),
			"content_type":    file.ContentType(),
		}).
		SetUploadCallbackWithInterval(func(info req.UploadInfo) {
			if info.FileSize > 0 {
				opts.progress(float64(info.UploadedSize) * 100 / float64(info.FileSize))
			}
		}, 200*time.Millisecond).
		SetSuccessResult(&res).
		SetErrorResult(&apiErr).
		Post("/upload")
	if err := handleAPIError(resp, err, "shdw upload"); err != nil {
		return "", err
	}

	for _, e := range res.UploadErrors {
		slog.Warn("shdw upload error", "file", e.File, "error", e.Error)
	}
	if len(res.FinalizedLocations) == 0 {
		return "", fmt.Errorf("shdw upload: %w", ErrUploadFailed)
	}
	opts.progress(100)

	return res.FinalizedLocations[0], nil
}

func (b *SHDWBackend) UploadMany(ctx context.Context, files []*genericfile.File, opts *UploadOptions) ([]string, error) {
	return uploadAll(ctx, files, b.config.ConcurrentUploads, opts, b.Upload)
}

func (b *SHDWBackend) UploadJSON(ctx context.Context, v any, opts *UploadOptions) (string, error) {
	return uploadJSON(ctx, b, v, opts)
}

// storageAccount resolves the account once. Failures are not cached so a later call
// can retry provisioning.
func (b *SHDWBackend) storageAccount(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.account != "" {
		return b.account, nil
	}

	if b.config.StorageAccount != "" {
		found, err := b.lookupAccount(ctx, b.config.StorageAccount)
		if err != nil {
			return "", err
		}
		if found {
			b.account = b.config.StorageAccount
			return b.account, nil
		}
		if !b.config.CreateIfMissing {
			return "", fmt.Errorf("%w: %q not found", ErrStorageAccount, b.config.StorageAccount)
		}
	}

	account, err := b.createAccount(ctx)
	if err != nil {
		return "", err
	}
	b.account = account
	return b.account, nil
}

func (b *SHDWBackend) lookupAccount(ctx context.Context, account string) (bool, error) {
	var res shdwAccountResponse
	var apiErr shdwError
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("account", account).
		SetSuccessResult(&res).
		SetErrorResult(&apiErr).
		Get("/storage-account/{account}")
	if err == nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := handleAPIError(resp, err, "shdw storage account"); err != nil {
		var e *APIError
		if errors.As(err, &e) && e.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *SHDWBackend) createAccount(ctx context.Context) (string, error) {
	name := fmt.Sprintf("coremint-%d", time.Now().Unix())
	size := fmt.Sprintf("%dMB", b.config.DefaultSizeMB)
	message := fmt.Sprintf("coremint storage account\nname: %s\nsize: %s", name, size)
	sig, err := b.payer.Sign([]byte(message))
	if err != nil {
		return "", fmt.Errorf("shdw sign: %w", err)
	}

	var res shdwAccountResponse
	var apiErr shdwError
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&shdwAccountRequest{
			Name:      name,
			Size:      size,
			Owner:     b.payer.Address(),
			Message:   message,
			Signature: base58.Encode(sig),
		}).
		SetSuccessResult(&res).
		SetErrorResult(&apiErr).
		Post("/storage-account")
	if err := handleAPIError(resp, err, "shdw create storage account"); err != nil {
		return "", err
	}
	if res.ShdwBucket == "" {
		return "", fmt.Errorf("%w: create returned no account", ErrStorageAccount)
	}

	slog.Info("shdw storage account created", "account", res.ShdwBucket, "size", size)
	return res.ShdwBucket, nil
}

var (
	_ Backend    = (*SHDWBackend)(nil)
	_ apiErrorer = (*shdwError)(nil)
)
