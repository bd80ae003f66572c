package models

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryLLM wraps an Agent with a per-attempt timeout and a bounded
// number of automatic retries with exponential backoff. After the
// attempts are exhausted the last error surfaces to the caller; this
// wrapper never fabricates an empty success.
type RetryLLM struct {
	Agent       Agent
	MaxAttempts int
	Timeout     time.Duration
	BaseDelay   time.Duration
}

// NewRetryLLM applies the session policy: 3 attempts, 60s per attempt.
func NewRetryLLM(agent Agent) *RetryLLM {
	return &RetryLLM{
		Agent:       agent,
		MaxAttempts: 3,
		Timeout:     60 * time.Second,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (r *RetryLLM) Generate(ctx context.Context, prompt string) (string, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := r.BaseDelay << (attempt - 2)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		text, err := r.Agent.Generate(attemptCtx, prompt)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Printf("generate attempt %d/%d failed: %v", attempt, attempts, err)
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
}

var _ Agent = (*RetryLLM)(nil)
