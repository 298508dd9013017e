package sniff

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDetectBytes(t *testing.T) {
	s := New(0)

	assert.Equal(t, "image/png", s.DetectBytes(pngHeader, "whatever.bin"))
	assert.Equal(t, "application/pdf", s.DetectBytes([]byte("%PDF-1.7\n..."), "doc"))

	// unknown binary falls back to the extension, then the default
	unknown := []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}
	assert.Equal(t, genericfile.JSONContentType, s.DetectBytes(unknown, "meta.json"))
	assert.Equal(t, genericfile.DefaultContentType, s.DetectBytes(unknown, "blob"))
	assert.Equal(t, genericfile.DefaultContentType, s.DetectBytes(nil, ""))
}

func TestDetectBytes_Idempotent(t *testing.T) {
	s := New(2)
	content := append(bytes.Clone(pngHeader), bytes.Repeat([]byte{7}, 5000)...)

	first := s.DetectBytes(content, "a.png")
	for range 5 {
		assert.Equal(t, first, s.DetectBytes(bytes.Clone(content), "a.png"))
	}
	assert.Equal(t, 1, s.cache.Len())
}

func TestDetectBytes_ExtensionFallback(t *testing.T) {
	s := New(0)
	assert.Equal(t, genericfile.JSONContentType, s.DetectBytes([]byte{0x00, 0x9f, 0x92, 0x96}, "/tmp/meta.json"))
	assert.Equal(t, genericfile.DefaultContentType, s.DetectBytes(nil, "meta"))
}

func TestDetectReader_ReplaysHeader(t *testing.T) {
	s := New(0)
	body := append(bytes.Clone(pngHeader), bytes.Repeat([]byte("x"), 10*HeaderSize)...)

	src := &countingReader{r: bytes.NewReader(body)}
	ct, rest, err := s.DetectReader(src, "remote")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	// only the header has been pulled from the source so far
	assert.LessOrEqual(t, src.n, HeaderSize)

	all, err := io.ReadAll(rest)
	require.NoError(t, err)
	assert.Equal(t, body, all)
}

func TestDetectReader_ShortStream(t *testing.T) {
	s := New(0)
	ct, rest, err := s.DetectReader(strings.NewReader(`{"name":"x"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", ct)

	all, err := io.ReadAll(rest)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(all))
}

func TestDetectReader_Error(t *testing.T) {
	s := New(0)
	_, _, err := s.DetectReader(&failingReader{}, "x")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestByExtension(t *testing.T) {
	assert.Equal(t, "application/json", ByExtension("A.JSON"))
	assert.Equal(t, "image/png", ByExtension("a.png"))
	assert.Equal(t, genericfile.DefaultContentType, ByExtension("a.unknownext"))
	assert.Equal(t, genericfile.DefaultContentType, ByExtension("noext"))
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }
