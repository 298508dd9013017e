package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	obs.ChunkStarted(0, 2)
	obs.UploadStarted("s3")
	obs.UploadFinished("s3", 128, 10*time.Millisecond, nil)
	obs.UploadStarted("s3")
	obs.UploadFinished("s3", 64, 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.uploads.WithLabelValues("s3", "uploaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.uploads.WithLabelValues("s3", "failed")))
	assert.Equal(t, 128.0, testutil.ToFloat64(obs.bytes.WithLabelValues("s3")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.inFlight.WithLabelValues("s3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.chunks))
}

func TestPrometheusObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	second.ChunkStarted(0, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.chunks))
}

func TestPrometheusObserver_WithRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver("", reg)
	require.NoError(t, err)

	report := NewOrchestrator(&fakeBackend{}, WithObserver(obs)).Run(context.Background(), writeFiles(t, 6), nil)
	require.Len(t, report.Uploaded, 6)

	assert.Equal(t, 6.0, testutil.ToFloat64(obs.uploads.WithLabelValues("fake", "uploaded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.chunks))

	path := filepath.Join(t.TempDir(), "coremint.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "coremint_uploads_total")
}
