package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	ErrNoBackend        = errors.New("no storage backend configured")
	ErrMultipleBackends = errors.New("more than one storage backend configured")
	ErrSignerRequired   = errors.New("a payer keypair or wallet is required")
	ErrUploadFailed     = errors.New("upload returned no uri")
	ErrStorageAccount   = errors.New("storage account unavailable")
)

const (
	CodeInvalidRequest = "E_INVALID_REQUEST"
	CodeUnauthorized   = "E_UNAUTHORIZED"
	CodeRateLimited    = "E_RATE_LIMITED"
	CodeInsufficient   = "E_INSUFFICIENT_BALANCE"
	CodeNotFound       = "E_NOT_FOUND"
	CodeInternalError  = "E_INTERNAL_ERROR"
	CodeUnknownError   = "E_UNKNOWN_ERR"
)

// ConfigurationError is raised before any upload starts. It is always fatal.
type ConfigurationError struct {
	Backend Kind
	Field   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("storage config")
	if e.Backend != "" {
		sb.WriteString(": ")
		sb.WriteString(string(e.Backend))
		if e.Field != "" {
			sb.WriteString(".")
			sb.WriteString(e.Field)
		}
	} else if e.Field != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(kind Kind, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Backend: kind, Field: field, Err: fmt.Errorf(format, args...)}
}

// APIError is a failure reported by a remote storage service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s - %s", e.Status, e.Code, e.Message)
}

// apiErrorer is implemented by the per-service error bodies.
type apiErrorer interface {
	apiError() *APIError
}

func codeForStatus(status int) string {
	switch {
	case status == 400 || status == 422:
		return CodeInvalidRequest
	case status == 401 || status == 403:
		return CodeUnauthorized
	case status == 402:
		return CodeInsufficient
	case status == 404:
		return CodeNotFound
	case status == 429:
		return CodeRateLimited
	case status >= 500:
		return CodeInternalError
	default:
		return CodeUnknownError
	}
}

// handleAPIError folds a transport error or an error status into one wrapped error.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		if resp == nil || resp.Response == nil || !resp.IsErrorState() {
			return fmt.Errorf("%s: http request: %w", operation, requestErr)
		}
		// error body did not decode, report the status instead
	}
	if !resp.IsErrorState() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Code: codeForStatus(resp.StatusCode)}
	if body, ok := resp.ErrorResult().(apiErrorer); ok {
		if e := body.apiError(); e != nil && e.Message != "" {
			apiErr.Message = e.Message
			if e.Code != "" {
				apiErr.Code = e.Code
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = truncate(strings.TrimSpace(resp.String()), 256)
	}
	return fmt.Errorf("%s: %w", operation, apiErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
