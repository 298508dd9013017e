package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coremint/coremint/internal/asset"
	"github.com/coremint/coremint/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFor(t *testing.T) {
	assert.Equal(t, upload.Request{FileURL: "https://example.com/a.png"}, requestFor("https://example.com/a.png"))
	assert.Equal(t, upload.Request{FilePath: "art/a.png"}, requestFor("art/a.png"))
	assert.Len(t, requestsFor(nil), 0)
}

func TestLoadTemplateAndOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Base
symbol: BASE
description: from template
attributes:
  - trait_type: background
    value: blue
properties:
  category: image
`), 0o644))

	doc, err := loadTemplate(path)
	require.NoError(t, err)
	require.Len(t, doc.Attributes, 1)
	assert.Equal(t, "background", doc.Attributes[0].TraitType)

	overlay(&doc, asset.Metadata{Name: "Piece #1", ExternalURL: "https://example.com"})
	assert.Equal(t, "Piece #1", doc.Name)
	assert.Equal(t, "BASE", doc.Symbol)
	assert.Equal(t, "from template", doc.Description)
	assert.Equal(t, "https://example.com", doc.ExternalURL)
	assert.Equal(t, "image", doc.Properties.Category)
}

func TestMetadataCommand_RequiresMedia(t *testing.T) {
	out, code := runCLI(t, nil, "metadata")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "--media is required")
}
