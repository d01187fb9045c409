package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

type retryPolicy struct {
	attempts int
	baseWait time.Duration
}

// do runs call up to attempts times, doubling the wait between tries. Only
// transient conditions are retried; exhaustion surfaces as
// ErrDependencyUnavailable so the orchestrator fails the document cleanly.
func (p retryPolicy) do(ctx context.Context, log *logger_i.Logger, call func(ctx context.Context) error) error {
	attempts := p.attempts
	if attempts <= 0 {
		attempts = 1
	}

	wait := p.baseWait
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			log.Error("embedding call failed", "error", lastErr)
			return fmt.Errorf("embedding call: %w", errors.Join(lastErr, docModel.ErrDependencyUnavailable))
		}
		if attempt == attempts {
			break
		}

		log.Warn("transient embedding failure, backing off", "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			return fmt.Errorf("embedding call: %w", errors.Join(ctx.Err(), docModel.ErrDependencyUnavailable))
		case <-time.After(wait):
		}
		wait *= 2
	}

	log.Error("embedding retries exhausted", "attempts", attempts, "error", lastErr)
	return fmt.Errorf("embedding retries exhausted after %d attempts: %w",
		attempts, errors.Join(lastErr, docModel.ErrDependencyUnavailable))
}

// isTransient classifies a failure as retryable: gRPC backpressure and
// outage codes, network timeouts and refused connections, call deadlines.
func isTransient(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, docModel.ErrTransientDependency)
}
