// Package upload drives batches of upload requests through a storage backend in
// fixed-size chunks and reports per-item outcomes instead of failing the batch.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coremint/coremint/internal/sniff"
	"github.com/coremint/coremint/internal/storage"
	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"golang.org/x/sync/errgroup"
)

const DefaultChunkSize = 5

// Recorder persists successful uploads. A failing Recorder never fails the upload.
type Recorder interface {
	Record(ctx context.Context, runID string, backend storage.Kind, s *Success) error
}

// ProgressFunc receives per-source upload progress in percent.
type ProgressFunc func(source string, percent float64)

type Orchestrator struct {
	backend   storage.Backend
	chunkSize int
	sniffer   *sniff.Sniffer
	fetcher   *req.Client
	resolver  *Resolver
	observer  Observer
	recorder  Recorder
	progress  ProgressFunc
}

type Option func(*Orchestrator)

// WithChunkSize bounds how many uploads run at once. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func WithSniffer(s *sniff.Sniffer) Option {
	return func(o *Orchestrator) { o.sniffer = s }
}

// WithFetcher sets the client used to download remote sources.
func WithFetcher(c *req.Client) Option {
	return func(o *Orchestrator) { o.fetcher = c }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func NewOrchestrator(backend storage.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:   backend,
		chunkSize: DefaultChunkSize,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.resolver = NewResolver(o.sniffer, o.fetcher)
	return o
}

func (o *Orchestrator) ChunkSize() int { return o.chunkSize }

// Run uploads requests chunk by chunk. Members of a chunk run concurrently and the
// next chunk starts only when the whole chunk is done. Once token is cancelled or ctx
// is done no further chunk is scheduled; those requests appear in neither list and
// are counted in Report.Skipped. Run never fails, every error is captured in the report.
func (o *Orchestrator) Run(ctx context.Context, requests []Request, token *CancelToken) *Report {
	if token == nil {
		token = NewCancelToken(ctx)
	}

	// in-flight calls observe both the caller's context and the token
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(token.Context(), cancel)
	defer stopAfter()

	report := newReport(uuid.NewString())
	kind := o.backend.Kind()
	started := time.Now()

	slog.Info("upload run started", "run", report.RunID, "backend", kind, "requests", len(requests), "chunkSize", o.chunkSize)

	for index, start := 0, 0; start < len(requests); index, start = index+1, start+o.chunkSize {
		if token.Cancelled() || ctx.Err() != nil {
			report.Skipped = len(requests) - start
			slog.Warn("upload run cancelled", "run", report.RunID, "skipped", report.Skipped)
			break
		}

		chunk := requests[start:min(start+o.chunkSize, len(requests))]
		report.Attempted += len(chunk)
		o.observer.ChunkStarted(index, len(chunk))
		slog.Debug("upload chunk", "run", report.RunID, "chunk", index, "size", len(chunk))

		var g errgroup.Group
		for _, request := range chunk {
			g.Go(func() error {
				report.add(o.process(runCtx, report.RunID, kind, request))
				return nil
			})
		}
		_ = g.Wait()
	}

	slog.Info("upload run finished",
		"run", report.RunID,
		"uploaded", len(report.Uploaded),
		"failed", len(report.Failed),
		"skipped", report.Skipped,
		"took", time.Since(started).Round(time.Millisecond),
	)
	return report
}

// process handles one request. The resolved buffer is dropped when it returns.
func (o *Orchestrator) process(ctx context.Context, runID string, kind storage.Kind, request Request) Outcome {
	source := request.Source()
	fail := func(err error) Outcome {
		slog.Warn("upload failed", "run", runID, "source", source, "error", err)
		return &Failure{OriginalSource: source, Err: err}
	}

	if err := request.Validate(); err != nil {
		return fail(err)
	}

	file, err := o.resolver.Resolve(ctx, request)
	if err != nil {
		return fail(err)
	}

	var opts *storage.UploadOptions
	if o.progress != nil {
		opts = &storage.UploadOptions{OnProgress: func(p float64) { o.progress(source, p) }}
	}

	o.observer.UploadStarted(kind)
	start := time.Now()
	uri, err := o.backend.Upload(ctx, file, opts)
	o.observer.UploadFinished(kind, file.Size(), time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("cancelled: %w", err)
		}
		return fail(transient("upload", err))
	}
	if uri == "" {
		return fail(transient("upload", storage.ErrUploadFailed))
	}

	success := &Success{
		URI:            uri,
		OriginalSource: source,
		ContentType:    file.ContentType(),
		UniqueName:     file.UniqueName(),
		Size:           file.Size(),
	}
	slog.Info("uploaded", "run", runID, "source", source, "uri", uri, "type", success.ContentType, "size", success.Size)

	if o.recorder != nil {
		// an interrupt must not lose the record of a finished upload
		if err := o.recorder.Record(context.WithoutCancel(ctx), runID, kind, success); err != nil {
			slog.Warn("record upload", "run", runID, "source", source, "error", err)
		}
	}
	return success
}
