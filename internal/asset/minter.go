package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coremint/coremint/internal/storage"
	"github.com/coremint/coremint/internal/upload"
)

var (
	ErrNoBuilder        = errors.New("no transaction builder configured")
	ErrMediaNotUploaded = errors.New("media upload failed")
)

// Prepared is the outcome of uploading an asset's files and metadata document.
type Prepared struct {
	MetadataURI string
	MediaURI    string
	Metadata    Metadata
	Report      *upload.Report
}

// Minter glues uploads to asset transactions.
type Minter struct {
	backend      storage.Backend
	orchestrator *upload.Orchestrator
	builder      Builder
	budget       *ComputeBudget
}

// NewMinter builds a Minter. builder may be nil when only PrepareMetadata is needed.
func NewMinter(backend storage.Backend, builder Builder, budget *ComputeBudget, opts ...upload.Option) *Minter {
	return &Minter{
		backend:      backend,
		orchestrator: upload.NewOrchestrator(backend, opts...),
		builder:      builder,
		budget:       budget,
	}
}

// PrepareMetadata uploads media and extras, fills the metadata document with their
// URIs and uploads the document. A failed media upload aborts; failed extras are
// left out of the document and remain visible in the report.
func (m *Minter) PrepareMetadata(ctx context.Context, media upload.Request, extras []upload.Request, meta Metadata) (*Prepared, error) {
	requests := append([]upload.Request{media}, extras...)
	report := m.orchestrator.Run(ctx, requests, nil)

	mediaOut, ok := report.Lookup(media.Source())
	if !ok {
		if err := report.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMediaNotUploaded, err)
		}
		return nil, ErrMediaNotUploaded
	}

	if meta.Name == "" {
		meta.Name = media.Name()
	}
	if isAnimated(mediaOut.Type) {
		meta.AnimationURL = mediaOut.FileURL
	} else if meta.Image == "" {
		meta.Image = mediaOut.FileURL
	}
	if meta.Properties.Category == "" {
		meta.Properties.Category = Category(mediaOut.Type)
	}

	files := []File{{URI: mediaOut.FileURL, Type: mediaOut.Type}}
	for _, extra := range extras {
		out, ok := report.Lookup(extra.Source())
		if !ok {
			slog.Warn("extra file left out of metadata", "source", extra.Source())
			continue
		}
		files = append(files, File{URI: out.FileURL, Type: out.Type})
		if meta.Image == "" && Category(out.Type) == "image" {
			meta.Image = out.FileURL
		}
	}
	meta.Properties.Files = append(meta.Properties.Files, files...)

	uri, err := m.backend.UploadJSON(ctx, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("upload metadata: %w", err)
	}
	slog.Info("metadata uploaded", "uri", uri, "files", len(meta.Properties.Files))

	return &Prepared{
		MetadataURI: uri,
		MediaURI:    mediaOut.FileURL,
		Metadata:    meta,
		Report:      report,
	}, nil
}

func (m *Minter) CreateAsset(ctx context.Context, req *CreateAssetRequest) (*Result, error) {
	return m.execute(ctx, req)
}

func (m *Minter) CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*Result, error) {
	return m.execute(ctx, req)
}

func (m *Minter) Update(ctx context.Context, req *UpdateAssetRequest) (*Result, error) {
	return m.execute(ctx, req)
}

func (m *Minter) execute(ctx context.Context, req Request) (*Result, error) {
	if m.builder == nil {
		return nil, ErrNoBuilder
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Operation(), err)
	}

	handle, err := m.builder.Build(ctx, req, m.budget)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", req.Operation(), err)
	}
	res, err := m.builder.Submit(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", req.Operation(), err)
	}

	slog.Info("transaction confirmed", "op", req.Operation(), "address", res.Address, "signature", res.Signature)
	return res, nil
}
