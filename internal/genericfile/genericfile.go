// Package genericfile holds the unit of work handed to storage backends: an
// in-memory byte buffer with a logical name, content type and tags.
package genericfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

const (
	DefaultContentType = "application/octet-stream"
	JSONContentType    = "application/json"

	TagContentType = "Content-Type"
)

// File is immutable once built. It owns its buffer: callers must not modify the
// slice passed to New afterwards.
type File struct {
	data        []byte
	name        string
	uniqueName  string
	contentType string
	extension   string
	tags        map[string]string
}

type Option func(*File)

func WithContentType(contentType string) Option {
	return func(f *File) {
		f.contentType = contentType
	}
}

// WithExtension overrides the extension derived from the name. A leading dot is dropped.
func WithExtension(ext string) Option {
	return func(f *File) {
		f.extension = strings.TrimPrefix(ext, ".")
	}
}

// WithTags adds backend specific tags. Content-Type is always set from the content type.
func WithTags(tags map[string]string) Option {
	return func(f *File) {
		maps.Copy(f.tags, tags)
	}
}

func New(data []byte, name string, opts ...Option) *File {
	f := &File{
		data:      data,
		name:      name,
		extension: strings.TrimPrefix(filepath.Ext(name), "."),
		tags:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.contentType == "" {
		f.contentType = DefaultContentType
	}
	f.tags[TagContentType] = f.contentType

	sum := sha256.Sum256(data)
	f.uniqueName = hex.EncodeToString(sum[:])
	return f
}

// FromJSON marshals v into a `metadata.json` file.
func FromJSON(v any, opts ...Option) (*File, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json file: %w", err)
	}
	opts = append([]Option{WithContentType(JSONContentType)}, opts...)
	return New(data, "metadata.json", opts...), nil
}

// Name is the logical name supplied by the caller
func (f *File) Name() string { return f.name }

// UniqueName is the hex SHA-256 of the contents. Identical bytes give identical
// names regardless of the logical name.
func (f *File) UniqueName() string { return f.uniqueName }

func (f *File) ContentType() string { return f.contentType }

func (f *File) Extension() string { return f.extension }

func (f *File) Size() int64 { return int64(len(f.data)) }

// Tags returns a copy
func (f *File) Tags() map[string]string { return maps.Clone(f.tags) }

// Reader returns a fresh reader over the contents.
func (f *File) Reader() *bytes.Reader { return bytes.NewReader(f.data) }

// Bytes returns a copy of the contents.
func (f *File) Bytes() []byte { return bytes.Clone(f.data) }

// WriteTo streams the contents to w without copying the buffer.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.data)
	return int64(n), err
}

// Key is the storage key: the unique name plus the extension when known.
func (f *File) Key() string {
	if f.extension == "" {
		return f.uniqueName
	}
	return f.uniqueName + "." + f.extension
}

func (f *File) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", f.name, f.contentType, len(f.data))
}
