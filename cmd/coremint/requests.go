package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/coremint/coremint/internal/upload"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
	gitignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"
)

var errNoRequests = errors.New("nothing to upload: pass --requests or --glob")

// always skipped by --glob
var defaultIgnoreLines = []string{
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"*.tmp",
	"*.swp",
	".git/",
}

// loadRequestFile reads a JSON or YAML array of upload requests.
func loadRequestFile(path string) ([]upload.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	var requests []upload.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &requests)
	default:
		err = json.Unmarshal(data, &requests)
	}
	if err != nil {
		return nil, fmt.Errorf("parse requests %s: %w", path, err)
	}
	return requests, nil
}

// expandGlobs turns doublestar patterns into file requests. A file matched by more
// than one pattern is requested once. Ignore rules match paths relative to the
// pattern's base directory.
func expandGlobs(patterns []string, ignoreFile string) ([]upload.Request, error) {
	var ignore *gitignore.GitIgnore
	if ignoreFile != "" {
		var err error
		if ignore, err = gitignore.CompileIgnoreFileAndLines(ignoreFile, defaultIgnoreLines...); err != nil {
			return nil, fmt.Errorf("ignore file: %w", err)
		}
	} else {
		ignore = gitignore.CompileIgnoreLines(defaultIgnoreLines...)
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var requests []upload.Request
	for _, pattern := range patterns {
		base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			if ignore.MatchesPath(match) {
				continue
			}
			path := filepath.Clean(filepath.Join(filepath.FromSlash(base), filepath.FromSlash(match)))
			if !seen.Add(path) {
				continue
			}
			requests = append(requests, upload.Request{FilePath: path})
		}
	}
	return requests, nil
}

// collectRequests merges the request file and glob matches, file entries first.
func collectRequests(requestsPath string, globs []string, ignoreFile string) ([]upload.Request, error) {
	var requests []upload.Request
	if requestsPath != "" {
		loaded, err := loadRequestFile(requestsPath)
		if err != nil {
			return nil, err
		}
		requests = append(requests, loaded...)
	}
	if len(globs) > 0 {
		matched, err := expandGlobs(globs, ignoreFile)
		if err != nil {
			return nil, err
		}
		requests = append(requests, matched...)
	}
	if len(requests) == 0 {
		return nil, errNoRequests
	}
	return requests, nil
}
