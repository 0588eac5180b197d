package insight

import "fmt"

// FailureKind classifies a provider failure for retry/failover decisions.
type FailureKind int

const (
	// FailureTransient covers network errors, timeouts, and 5xx responses.
	FailureTransient FailureKind = iota
	// FailureRateLimited is a 429-class rejection.
	FailureRateLimited
	// FailureAuth is an invalid or expired credential.
	FailureAuth
	// FailureContentPolicy is a content rejection by the provider.
	FailureContentPolicy
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuth:
		return "auth"
	case FailureContentPolicy:
		return "content_policy"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from one text generation provider.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying against the same
// provider. Auth and content-policy rejections will not go away on retry.
func (e *ProviderError) Retryable() bool {
	return e.Kind == FailureTransient || e.Kind == FailureRateLimited
}
