package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/sniff"
	"github.com/coremint/coremint/internal/utils"
	"github.com/coremint/coremint/internal/version"
	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"
	"github.com/shirou/gopsutil/v4/mem"
)

// Resolver turns a request into an in-memory GenericFile. The request is left untouched.
type Resolver struct {
	sniffer *sniff.Sniffer
	client  *req.Client

	// available reports free memory in bytes; zero disables the size check
	available func(ctx context.Context) uint64
}

func NewResolver(sniffer *sniff.Sniffer, client *req.Client) *Resolver {
	if sniffer == nil {
		sniffer = sniff.New(0)
	}
	if client == nil {
		client = NewFetchClient()
	}
	return &Resolver{
		sniffer:   sniffer,
		client:    client,
		available: availableMemory,
	}
}

// NewFetchClient returns a streaming client for remote sources.
func NewFetchClient() *req.Client {
	return req.C().
		SetUserAgent(version.UserAgent()).
		SetCommonRetryCount(0).
		DisableAutoReadResponse()
}

func availableMemory(ctx context.Context) uint64 {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		slog.Debug("memory stats unavailable", "error", err)
		return 0
	}
	return vm.Available
}

func (r *Resolver) Resolve(ctx context.Context, request Request) (*genericfile.File, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	if request.IsRemote() {
		data, contentType, err = r.fetch(ctx, request)
	} else {
		data, contentType, err = r.readLocal(ctx, request)
	}
	if err != nil {
		return nil, err
	}

	if request.Type != "" {
		contentType = request.Type
	} else if len(data) == 0 && contentType == genericfile.DefaultContentType {
		return nil, invalid(ErrEmptyContent)
	}

	return genericfile.New(data, request.Name(), genericfile.WithContentType(contentType)), nil
}

func (r *Resolver) readLocal(ctx context.Context, request Request) ([]byte, string, error) {
	path, err := utils.ResolvePath(request.FilePath)
	if err != nil {
		return nil, "", invalid(err)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", invalid(err)
	} else if err != nil {
		return nil, "", transient("stat", err)
	}
	if !info.Mode().IsRegular() {
		return nil, "", invalid(fmt.Errorf("%s: %w", path, ErrNotRegular))
	}
	if err := r.checkMemory(ctx, uint64(info.Size())); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", transient("read", err)
	}
	// the extension fallback follows the path, not the logical file name
	return data, r.sniffer.DetectBytes(data, path), nil
}

func (r *Resolver) fetch(ctx context.Context, request Request) ([]byte, string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		Get(request.FileURL)
	if err != nil {
		return nil, "", transient("fetch", err)
	}
	defer resp.Body.Close()

	if resp.IsErrorState() {
		return nil, "", transient("fetch", fmt.Errorf("unexpected status %s", resp.Status))
	}
	if resp.ContentLength > 0 {
		if err := r.checkMemory(ctx, uint64(resp.ContentLength)); err != nil {
			return nil, "", err
		}
	}

	name := request.Name()
	contentType, body, err := r.sniffer.DetectReader(resp.Body, name)
	if err != nil {
		return nil, "", transient("fetch", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", transient("fetch", err)
	}

	if contentType == genericfile.DefaultContentType {
		if header, _, err := mime.ParseMediaType(resp.GetContentType()); err == nil && header != genericfile.DefaultContentType {
			contentType = header
		}
	}
	return data, contentType, nil
}

func (r *Resolver) checkMemory(ctx context.Context, size uint64) error {
	if r.available == nil {
		return nil
	}
	avail := r.available(ctx)
	if avail == 0 || size <= avail {
		return nil
	}
	return invalid(fmt.Errorf("%w: %s > %s", ErrExceedsMemory, humanize.IBytes(size), humanize.IBytes(avail)))
}
