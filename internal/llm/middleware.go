// ABOUTME: Provider middleware: placeholder protection, rate limiting, retry, circuit breaking, fallback
// ABOUTME: Each wrapper is itself a Provider so they compose in any order
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/protect"
	"github.com/harper/transdoc/internal/util"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether another attempt might succeed
func Retryable(err error) bool {
	var perm *permanentError
	switch {
	case errors.As(err, &perm):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// asProviderError wraps err as a ProviderError unless it already is one
func asProviderError(name string, err error) error {
	if err == nil || errors.Is(err, errs.ErrProvider) {
		return err
	}
	return &errs.ProviderError{Provider: name, Err: err}
}

type protected struct {
	next Provider
}

// WithProtection swaps verbatim spans for <ph/> tokens before the call and restores them after
func WithProtection(next Provider) Provider {
	return &protected{next: next}
}

func (p *protected) Name() string { return p.next.Name() }

func (p *protected) Translate(ctx context.Context, req Request) (string, error) {
	prot := protect.Protect(req.Text)
	if len(prot.Spans) == 0 {
		return p.next.Translate(ctx, req)
	}

	req.Text = prot.Text
	out, err := p.next.Translate(ctx, req)
	if err != nil {
		return "", err
	}
	restored, err := protect.Restore(out, prot.Spans)
	if err != nil {
		return "", &errs.ProviderError{Provider: p.Name(), Err: err}
	}
	return restored, nil
}

type rateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit allows at most rps calls per second with the given burst
func WithRateLimit(next Provider, rps float64, burst int) Provider {
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Translate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &errs.ProviderError{Provider: r.Name(), Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	return r.next.Translate(ctx, req)
}

type retrying struct {
	next       Provider
	maxRetries int
	delay      time.Duration
	logger     *log.Logger
}

// WithRetry retries transient failures with exponential backoff
func WithRetry(next Provider, maxRetries int, delay time.Duration, logger *log.Logger) Provider {
	return &retrying{next: next, maxRetries: maxRetries, delay: delay, logger: logging.OrDiscard(logger)}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Translate(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0
	err := util.Retry(ctx, r.maxRetries, r.delay, Retryable, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			r.logger.Debug("retrying provider call", "provider", r.Name(), "attempt", attempt)
		}
		var err error
		out, err = r.next.Translate(ctx, req)
		return err
	})
	if err != nil {
		return "", asProviderError(r.Name(), err)
	}
	return out, nil
}

type breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker opens the circuit after failures consecutive errors and lets a trial call through after cooldown
func WithBreaker(next Provider, failures int, cooldown time.Duration, logger *log.Logger) Provider {
	logger = logging.OrDiscard(logger)
	threshold := uint32(failures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    next.Name(),
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Cancellation says nothing about the provider's health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit changed state", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return &breaker{next: next, cb: cb}
}

func (b *breaker) Name() string { return b.next.Name() }

func (b *breaker) Translate(ctx context.Context, req Request) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Translate(ctx, req)
	})
	if err != nil {
		return "", asProviderError(b.Name(), err)
	}
	return out.(string), nil
}

// Fallback tries a primary provider, then a secondary one
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *log.Logger
}

// NewFallback creates a provider that falls back to secondary when primary fails
func NewFallback(primary, secondary Provider, logger *log.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logging.OrDiscard(logger)}
}

// Name reports both providers
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Translate uses the secondary provider unless the caller gave up
func (f *Fallback) Translate(ctx context.Context, req Request) (string, error) {
	out, err := f.primary.Translate(ctx, req)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	f.logger.Warn("primary provider failed, using fallback",
		"primary", f.primary.Name(), "fallback", f.secondary.Name(), "error", err)
	out, err2 := f.secondary.Translate(ctx, req)
	if err2 != nil {
		return "", asProviderError(f.Name(), fmt.Errorf("%w; fallback: %w", err, err2))
	}
	return out, nil
}
