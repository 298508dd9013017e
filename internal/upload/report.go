package upload

import (
	"errors"
	"fmt"
	"sync"
)

// Outcome is either *Success or *Failure.
type Outcome interface {
	outcome()
}

type Success struct {
	URI            string
	OriginalSource string
	ContentType    string
	UniqueName     string
	Size           int64
}

type Failure struct {
	OriginalSource string
	Err            error
}

func (*Success) outcome() {}
func (*Failure) outcome() {}

type Uploaded struct {
	FileURL     string `json:"fileUrl"`
	OriginalURI string `json:"originalUri"`
	Type        string `json:"type"`
}

type Failed struct {
	FailedURI string `json:"failedUri"`
	Error     string `json:"error"`

	err error
}

// Err returns the underlying error, or nil for a decoded report.
func (f Failed) Err() error { return f.err }

// Report collects outcomes in completion order. Safe for concurrent use while a run
// is in progress; do not modify it after Run returns.
type Report struct {
	RunID     string     `json:"-"`
	Attempted int        `json:"-"`
	Skipped   int        `json:"-"`
	Uploaded  []Uploaded `json:"uploaded"`
	Failed    []Failed   `json:"failed"`

	mu sync.Mutex
}

func newReport(runID string) *Report {
	return &Report{
		RunID:    runID,
		Uploaded: []Uploaded{},
		Failed:   []Failed{},
	}
}

func (r *Report) add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch o := o.(type) {
	case *Success:
		r.Uploaded = append(r.Uploaded, Uploaded{
			FileURL:     o.URI,
			OriginalURI: o.OriginalSource,
			Type:        o.ContentType,
		})
	case *Failure:
		r.Failed = append(r.Failed, Failed{
			FailedURI: o.OriginalSource,
			Error:     o.Err.Error(),
			err:       o.Err,
		})
	}
}

// Total is the number of recorded outcomes.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Uploaded) + len(r.Failed)
}

// Err joins every recorded failure, or returns nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		err := f.err
		if err == nil {
			err = errors.New(f.Error)
		}
		errs = append(errs, fmt.Errorf("%s: %w", f.FailedURI, err))
	}
	return errors.Join(errs...)
}

// Lookup returns the uploaded entry for a source, if present.
func (r *Report) Lookup(source string) (Uploaded, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.Uploaded {
		if u.OriginalURI == source {
			return u, true
		}
	}
	return Uploaded{}, false
}
