package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/imroc/req/v3"
	"github.com/mr-tron/base58"
)

const (
	HeaderMaxPrice = "X-Max-Price"
	HeaderTags     = "X-Tags"
	irysCurrency   = "solana"
)

// IrysBackend pays per byte for permanent storage on an Irys node.
type IrysBackend struct {
	client   *req.Client
	config   IrysConfig
	payer    wallet.Signer
	throttle *throttle
}

type irysReceipt struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

func newIrysBackend(cfg *IrysConfig, payer wallet.Signer) (*IrysBackend, error) {
	c := cfg.withDefaults()
	t, err := newThrottle(string(KindIrys), c.RateLimit)
	if err != nil {
		return nil, &ConfigurationError{Backend: KindIrys, Field: "rate_limit", Err: err}
	}
	return &IrysBackend{
		client:   newHTTPClient(c.Timeout),
		config:   c,
		payer:    payer,
		throttle: t,
	}, nil
}

func (b *IrysBackend) Kind() Kind { return KindIrys }

// Price returns the node's quote in lamports for size bytes, scaled by the price multiplier.
func (b *IrysBackend) Price(ctx context.Context, size int64) (uint64, error) {
	if err := b.throttle.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := utils.JoinURL(b.config.Address, "price", irysCurrency, strconv.FormatInt(size, 10))
	resp, err := b.client.R().
		SetContext(ctx).
		Get(endpoint)
	if err := handleAPIError(resp, err, "irys price"); err != nil {
		return 0, err
	}

	base, err := strconv.ParseUint(strings.TrimSpace(resp.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("irys price: parse %q: %w", truncate(resp.String(), 32), err)
	}
	return uint64(math.Ceil(float64(base) * b.config.PriceMultiplier)), nil
}

func (b *IrysBackend) Upload(ctx context.Context, file *genericfile.File, opts *UploadOptions) (string, error) {
	price, err := b.Price(ctx, file.Size())
	if err != nil {
		return "", err
	}

	data := file.Bytes()
	digest := sha256.Sum256(data)
	sig, err := b.payer.Sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("irys sign: %w", err)
	}
	tags, err := jsonMarshal(file.Tags())
	if err != nil {
		return "", fmt.Errorf("irys tags: %w", err)
	}

	if err := b.throttle.Wait(ctx); err != nil {
		return "", err
	}

	opts.progress(0)
	var receipt irysReceipt
	resp, err := b.client.R().
		SetContext(ctx).
		SetContentType(file.ContentType()).
		SetHeader(HeaderPayer, b.payer.Address()).
		SetHeader(HeaderSignature, base58.Encode(sig)).
		SetHeader(HeaderMaxPrice, strconv.FormatUint(price, 10)).
		SetHeader(HeaderTags, string(tags)).
		SetBody(data).
		SetSuccessResult(&receipt).
		Post(utils.JoinURL(b.config.Address, "tx", irysCurrency))
	if err := handleAPIError(resp, err, "irys upload"); err != nil {
		return "", err
	}
	if receipt.ID == "" {
		return "", fmt.Errorf("irys upload: %w", ErrUploadFailed)
	}
	opts.progress(100)

	slog.Debug("irys upload", "id", receipt.ID, "size", file.Size(), "price", price)
	return utils.JoinURL(b.config.Gateway, receipt.ID), nil
}

func (b *IrysBackend) UploadMany(ctx context.Context, files []*genericfile.File, opts *UploadOptions) ([]string, error) {
	return uploadAll(ctx, files, 1, opts, b.Upload)
}

func (b *IrysBackend) UploadJSON(ctx context.Context, v any, opts *UploadOptions) (string, error) {
	return uploadJSON(ctx, b, v, opts)
}

var _ Backend = (*IrysBackend)(nil)
