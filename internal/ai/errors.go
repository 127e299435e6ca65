package ai

import (
	"errors"
	"fmt"
)

// ProviderError indicates that the Answering Service could not produce an
// answer: transport failure, timeout, non-2xx status, or an unusable
// response body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Detail returns a description including the provider name, for logs.
func (e *ProviderError) Detail() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// IsProviderError reports whether err (or any error in its chain) is a
// ProviderError.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}
