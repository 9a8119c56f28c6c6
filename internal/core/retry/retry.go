// Package retry runs an operation again with exponential backoff when it
// fails with a transient error.
package retry

import (
	"context"
	"errors"
	"time"

	logx "github.com/Chative-commerce/server/pkg/logger"
)

// Policy mirrors the backoff used for model calls: initial delay, growth
// factor and the total number of attempts.
type Policy struct {
	InitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"2s"`
	Base         float64       `envconfig:"RETRY_BASE" default:"2"`
	MaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`
}

// DefaultPolicy is used when a zero Policy is supplied.
var DefaultPolicy = Policy{InitialDelay: 2 * time.Second, Base: 2, MaxAttempts: 5}

// ErrExhausted is returned (joined with the last error) when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Base < 1 {
		p.Base = DefaultPolicy.Base
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	return p
}

// Do calls op until it succeeds, returns a permanent error, the context is
// done or the attempts run out.
func Do(ctx context.Context, name string, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return err
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}

		logx.Warn().
			Err(err).
			Str("operation", name).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("wait", delay).
			Msg("transient failure, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * p.Base)
	}

	logx.Error().Err(lastErr).Str("operation", name).Int("max_attempts", p.MaxAttempts).Msg("giving up")
	return errors.Join(ErrExhausted, lastErr)
}
