package upload

import (
	"net/url"
	"path"
	"path/filepath"

	"github.com/coremint/coremint/internal/utils"
)

// Request names a single file to upload. Exactly one of FilePath and FileURL is set.
type Request struct {
	FilePath string `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	FileURL  string `json:"fileUrl,omitempty" yaml:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
}

func (r Request) Validate() error {
	switch {
	case r.FilePath == "" && r.FileURL == "":
		return invalid(ErrNoSource)
	case r.FilePath != "" && r.FileURL != "":
		return invalid(ErrBothSources)
	case r.FileURL != "" && !utils.IsValidURL(r.FileURL):
		return invalid(ErrInvalidURL)
	}
	return nil
}

// Source is the path or URL the request was made from.
func (r Request) Source() string {
	if r.FilePath != "" {
		return r.FilePath
	}
	return r.FileURL
}

func (r Request) IsRemote() bool { return r.FilePath == "" && r.FileURL != "" }

// Name is the logical file name, defaulting to the last element of the source.
func (r Request) Name() string {
	if r.FileName != "" {
		return r.FileName
	}
	if r.FilePath != "" {
		return filepath.Base(r.FilePath)
	}
	if u, err := url.Parse(r.FileURL); err == nil && u.Path != "" && u.Path != "/" {
		return path.Base(u.Path)
	}
	return ""
}
