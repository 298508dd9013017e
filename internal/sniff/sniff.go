// Package sniff determines content types from magic numbers, falling back to the
// file extension and finally to application/octet-stream. Detection never fails.
package sniff

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// HeaderSize is how many leading bytes are inspected
	HeaderSize = 3072

	defaultCacheSize = 1024
)

type Sniffer struct {
	cache *lru.Cache[[sha256.Size]byte, string]
}

// New creates a Sniffer memoising up to cacheSize header digests. cacheSize <= 0
// uses the default size.
func New(cacheSize int) *Sniffer {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, string](cacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Sniffer{cache: cache}
}

// DetectBytes inspects the head of data. name only feeds the extension fallback.
func (s *Sniffer) DetectBytes(data []byte, name string) string {
	if len(data) > HeaderSize {
		data = data[:HeaderSize]
	}
	return withFallback(s.magic(data), name)
}

// DetectReader peeks at the first HeaderSize bytes of r and returns the content type
// with a reader that yields the full stream, header included. Only a read error
// other than EOF is returned.
func (s *Sniffer) DetectReader(r io.Reader, name string) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, HeaderSize)
	header, err := br.Peek(HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}
	return withFallback(s.magic(header), name), br, nil
}

// magic returns "" when the header is inconclusive.
func (s *Sniffer) magic(header []byte) string {
	if len(header) == 0 {
		return ""
	}

	key := sha256.Sum256(header)
	if ct, ok := s.cache.Get(key); ok {
		return ct
	}

	ct := ""
	if m := mimetype.Detect(header); !m.Is(genericfile.DefaultContentType) {
		ct = m.String()
	}
	s.cache.Add(key, ct)
	return ct
}

func withFallback(detected, name string) string {
	if detected != "" {
		return detected
	}
	return ByExtension(name)
}

// ByExtension maps a file name to a content type, `.json` first.
func ByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case "":
		return genericfile.DefaultContentType
	case ".json":
		return genericfile.JSONContentType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return genericfile.DefaultContentType
}
