package llm

import "fmt"

// FailoverReason categorizes why a provider request failed, so callers
// can decide whether to retry the same provider or fail over to another.
type FailoverReason string

const (
	FailoverRateLimit        FailoverReason = "rate_limit"
	FailoverAuth             FailoverReason = "auth"
	FailoverTimeout          FailoverReason = "timeout"
	FailoverServerError      FailoverReason = "server_error"
	FailoverInvalidRequest   FailoverReason = "invalid_request"
	FailoverModelUnavailable FailoverReason = "model_unavailable"
	FailoverUnknown          FailoverReason = "unknown"
)

// IsRetryable reports whether retrying the same provider/model may help.
func (r FailoverReason) IsRetryable() bool {
	switch r {
	case FailoverRateLimit, FailoverTimeout, FailoverServerError:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from an LLM provider, carrying
// enough context for retry and failover decisions.
type ProviderError struct {
	Reason   FailoverReason
	Provider string
	Model    string
	Status   int
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (model=%s, status=%d)", e.Provider, e.Message, e.Model, e.Status)
	}
	return fmt.Sprintf("%s: %s (model=%s)", e.Provider, e.Message, e.Model)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// classifyStatus maps an HTTP status code to a FailoverReason.
func classifyStatus(status int) FailoverReason {
	switch {
	case status == 401 || status == 403:
		return FailoverAuth
	case status == 429:
		return FailoverRateLimit
	case status == 400 || status == 422:
		return FailoverInvalidRequest
	case status == 404:
		return FailoverModelUnavailable
	case status >= 500:
		return FailoverServerError
	case status == 408:
		return FailoverTimeout
	default:
		return FailoverUnknown
	}
}

func wrapError(provider, model string, status int, err error) *ProviderError {
	if err == nil {
		return nil
	}
	reason := FailoverUnknown
	if status != 0 {
		reason = classifyStatus(status)
	} else if isRetryableMessage(err) {
		reason = FailoverServerError
	}
	return &ProviderError{
		Reason:   reason,
		Provider: provider,
		Model:    model,
		Status:   status,
		Message:  err.Error(),
		Cause:    err,
	}
}
