package upload

import (
	"errors"
	"fmt"
	"time"

	"github.com/coremint/coremint/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer receives upload lifecycle events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ChunkStarted(index, size int)
	UploadStarted(backend storage.Kind)
	UploadFinished(backend storage.Kind, size int64, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ChunkStarted(int, int) {}

func (nopObserver) UploadStarted(storage.Kind) {}

func (nopObserver) UploadFinished(storage.Kind, int64, time.Duration, error) {}

// PrometheusObserver exports upload metrics.
type PrometheusObserver struct {
	uploads  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	chunks   prometheus.Counter
}

// NewPrometheusObserver registers the upload metrics on reg, reusing collectors that
// are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "coremint"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	o := &PrometheusObserver{}
	if o.uploads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Uploads by backend and outcome.",
	}, []string{"backend", "outcome"})); err != nil {
		return nil, fmt.Errorf("register uploads counter: %w", err)
	}
	if o.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "Latency of single file uploads.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend"})); err != nil {
		return nil, fmt.Errorf("register upload histogram: %w", err)
	}
	if o.bytes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Payload bytes successfully uploaded.",
	}, []string{"backend"})); err != nil {
		return nil, fmt.Errorf("register uploaded bytes counter: %w", err)
	}
	if o.inFlight, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uploads_in_flight",
		Help:      "Uploads currently in progress.",
	}, []string{"backend"})); err != nil {
		return nil, fmt.Errorf("register in-flight gauge: %w", err)
	}
	if o.chunks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_total",
		Help:      "Chunks scheduled.",
	})); err != nil {
		return nil, fmt.Errorf("register chunk counter: %w", err)
	}
	return o, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (o *PrometheusObserver) ChunkStarted(int, int) {
	o.chunks.Inc()
}

func (o *PrometheusObserver) UploadStarted(backend storage.Kind) {
	o.inFlight.WithLabelValues(string(backend)).Inc()
}

func (o *PrometheusObserver) UploadFinished(backend storage.Kind, size int64, duration time.Duration, err error) {
	label := string(backend)
	o.inFlight.WithLabelValues(label).Dec()
	o.duration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		o.uploads.WithLabelValues(label, "failed").Inc()
		return
	}
	o.uploads.WithLabelValues(label, "uploaded").Inc()
	o.bytes.WithLabelValues(label).Add(float64(size))
}

// WriteTextfile dumps everything g gathers in the node exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

var (
	_ Observer = nopObserver{}
	_ Observer = (*PrometheusObserver)(nil)
)
