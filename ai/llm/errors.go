package llm

import (
	"errors"
	"fmt"
)

// ErrGatewayUnavailable means no provider client is configured at all.
var ErrGatewayUnavailable = errors.New("llm: no provider configured")

// ProviderError wraps an upstream provider failure (auth, rate limit, timeout).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm: provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MalformedResponse means the provider replied but the reply could not be
// normalized to the expected shape.
type MalformedResponse struct {
	Reason string
	Raw    string
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("llm: malformed response: %s", e.Reason)
}
