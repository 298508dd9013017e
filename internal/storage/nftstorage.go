package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/imroc/req/v3"
)

// NFTStorageBackend pins files on NFT.Storage and addresses them by CID.
type NFTStorageBackend struct {
	client   *req.Client
	config   NFTStorageConfig
	payer    wallet.Signer
	throttle *throttle
}

type nftStorageResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
}

type nftStorageError struct {
	OK    bool `json:"ok"`
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *nftStorageError) apiError() *APIError {
	return &APIError{Code: e.Error.Name, Message: e.Error.Message}
}

func newNFTStorageBackend(cfg *NFTStorageConfig, payer wallet.Signer) (*NFTStorageBackend, error) {
	c := cfg.withDefaults()
	t, err := newThrottle(string(KindNFTStorage), c.RateLimit)
	if err != nil {
		return nil, &ConfigurationError{Backend: KindNFTStorage, Field: "rate_limit", Err: err}
	}

	client := newHTTPClient(0).
		SetBaseURL(c.Endpoint).
		SetCommonBearerAuthToken(c.Token)
	slog.Debug("nft.storage backend", "endpoint", c.Endpoint, "token", utils.MaskSecret(c.Token), "batchSize", c.BatchSize)

	return &NFTStorageBackend{
		client:   client,
		config:   c,
		payer:    payer,
		throttle: t,
	}, nil
}

func (b *NFTStorageBackend) Kind() Kind { return KindNFTStorage }

func (b *NFTStorageBackend) Upload(ctx context.Context, file *genericfile.File, opts *UploadOptions) (string, error) {
	if err := b.throttle.Wait(ctx); err != nil {
		return "", err
	}

	var res nftStorageResponse
	var apiErr nftStorageError

	opts.progress(0)
	r := b.client.R().
		SetContext(ctx).
		SetContentType(file.ContentType()).
		SetBody(file.Bytes()).
		SetSuccessResult(&res).
		SetErrorResult(&apiErr)
	if b.payer != nil {
		r.SetHeader(HeaderPayer, b.payer.Address())
	}
	resp, err := r.Post("/upload")
	if err := handleAPIError(resp, err, "nft.storage upload"); err != nil {
		return "", err
	}
	if !res.OK || res.Value.CID == "" {
		return "", fmt.Errorf("nft.storage upload: %w", ErrUploadFailed)
	}
	opts.progress(100)

	slog.Debug("nft.storage upload", "cid", res.Value.CID, "size", file.Size())
	return b.cidURI(res.Value.CID), nil
}

// UploadMany sends files in groups of batch_size, one group at a time.
func (b *NFTStorageBackend) UploadMany(ctx context.Context, files []*genericfile.File, opts *UploadOptions) ([]string, error) {
	uris := make([]string, 0, len(files))
	for start := 0; start < len(files); start += b.config.BatchSize {
		end := min(start+b.config.BatchSize, len(files))
		group, err := uploadAll(ctx, files[start:end], end-start, nil, b.Upload)
		if err != nil {
			return nil, err
		}
		uris = append(uris, group...)
		opts.progress(float64(end) * 100 / float64(len(files)))
	}
	return uris, nil
}

func (b *NFTStorageBackend) UploadJSON(ctx context.Context, v any, opts *UploadOptions) (string, error) {
	return uploadJSON(ctx, b, v, opts)
}

func (b *NFTStorageBackend) cidURI(cid string) string {
	if b.config.UseGatewayURLs {
		return fmt.Sprintf("https://%s.ipfs.%s", cid, b.config.GatewayHost)
	}
	return "ipfs://" + cid
}

var (
	_ Backend    = (*NFTStorageBackend)(nil)
	_ apiErrorer = (*nftStorageError)(nil)
)
