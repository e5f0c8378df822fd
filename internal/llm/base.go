// Package llm provides agentloop.Provider implementations backed by real
// third-party LLM SDKs: Anthropic's Claude API and OpenAI's chat
// completion API. Each provider converts between the runtime's tagged
// models.Message/Content shapes and its own wire format, and streams
// responses back as agentloop.CompletionChunk values.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rustant/rustant/internal/agentloop"
	"github.com/rustant/rustant/internal/observability"
)

// instrumentStream forwards raw's chunks to the returned channel
// unchanged, recording one LLM-request metric when the stream reaches
// a terminal (Done or Error) chunk. metrics may be nil, in which case
// this is a pass-through. Wrapping the stream at this single seam lets
// both providers' processStream implementations stay free of metrics
// concerns despite having multiple return points.
func instrumentStream(metrics *observability.Metrics, provider, model string, raw <-chan *agentloop.CompletionChunk) <-chan *agentloop.CompletionChunk {
	if metrics == nil {
		return raw
	}

	out := make(chan *agentloop.CompletionChunk)
	go func() {
		defer close(out)
		start := time.Now()
		for chunk := range raw {
			out <- chunk
			if chunk.Error != nil {
				metrics.RecordLLMRequest(provider, model, "error", time.Since(start).Seconds(), 0, 0)
				metrics.RecordError("llm", provider)
				continue
			}
			if chunk.Done {
				metrics.RecordLLMRequest(provider, model, "ok", time.Since(start).Seconds(), chunk.InputTokens, chunk.OutputTokens)
			}
		}
	}()
	return out
}

// retrier holds shared retry configuration used by every provider in
// this package; providers embed it rather than reimplementing backoff.
type retrier struct {
	maxRetries int
	retryDelay time.Duration
}

func newRetrier(maxRetries int, retryDelay time.Duration) retrier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return retrier{maxRetries: maxRetries, retryDelay: retryDelay}
}

// retry runs op with linear backoff, stopping early when isRetryable
// reports false for the most recent error.
func (r retrier) retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= r.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}

// isRetryableMessage does a coarse, provider-agnostic classification of
// an error by its text, used when an SDK doesn't expose a typed status.
func isRetryableMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
