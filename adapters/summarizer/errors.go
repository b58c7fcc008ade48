package summarizer

import "errors"

var (
	ErrAPIKeyRequired        = errors.New("API key is required")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrContextLengthExceeded = errors.New("transcript exceeds maximum context length")
	ErrEmptyTranscript       = errors.New("transcript is empty")
	ErrEmptyResponse         = errors.New("model returned no content")

	// ErrDisabled is returned when no summarization provider is configured.
	ErrDisabled = errors.New("summarization is not configured")
)
