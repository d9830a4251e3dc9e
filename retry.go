package lazyrpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for Warm's exponential backoff.
const (
	warmInitialInterval = 200 * time.Millisecond
	warmMaxInterval     = 5 * time.Second
	warmMaxElapsedTime  = time.Minute
)

// Warm constructs the target eagerly, retrying failed attempts with
// exponential backoff until construction succeeds, the backoff gives up,
// or ctx ends. The gate itself never retries; Warm is the caller-side
// retry loop packaged for convenience.
func (p *LazyProvider) Warm(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = warmInitialInterval
	b.MaxInterval = warmMaxInterval
	b.MaxElapsedTime = warmMaxElapsedTime
	return p.WarmBackOff(ctx, b)
}

// WarmBackOff is Warm with a caller-supplied backoff policy.
func (p *LazyProvider) WarmBackOff(ctx context.Context, b backoff.BackOff) error {
	op := func() error {
		_, err := p.ensure(ctx)
		return err
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
