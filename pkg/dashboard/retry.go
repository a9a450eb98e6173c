package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// Retry defaults match the dashboard's documented rate-limit guidance.
const (
	DefaultRetryMinWait     = 10 * time.Second
	DefaultRetryMaxWait     = 120 * time.Second
	DefaultRetryMaxAttempts = 5
)

// ErrRetryExhausted is matched by errors.Is on a RetryExhaustedError.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryExhaustedError is returned when every attempt was rate limited.
type RetryExhaustedError struct {
	Op       string
	Attempts uint
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// RetryPolicy retries rate-limited (HTTP 429) calls with exponential backoff.
// Any other failure is returned on the first attempt.
type RetryPolicy struct {
	MinWait     time.Duration
	MaxWait     time.Duration
	MaxAttempts uint
	Metrics     *Metrics
}

// DefaultRetryPolicy returns the 10s/120s/5-attempt policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MinWait:     DefaultRetryMinWait,
		MaxWait:     DefaultRetryMaxWait,
		MaxAttempts: DefaultRetryMaxAttempts,
	}
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

// Do calls fn until it succeeds, fails with something other than a rate
// limit, or runs out of attempts.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() (gjson.Result, error)) (gjson.Result, error) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultRetryMaxAttempts
	}
	if p.MinWait <= 0 {
		p.MinWait = DefaultRetryMinWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.MinWait
	b.MaxInterval = p.MaxWait
	b.Multiplier = 2
	b.RandomizationFactor = 0

	var attempts uint
	attempt := func() (gjson.Result, error) {
		attempts++
		res, err := fn()
		if err == nil {
			return res, nil
		}
		if !IsRateLimited(err) {
			return gjson.Result{}, backoff.Permanent(err)
		}
		return gjson.Result{}, err
	}

	notify := func(err error, wait time.Duration) {
		util.WithOperation(op).Debugf("Still working on dashboard request, retry attempt %d/%d after %s: %v",
			attempts, p.MaxAttempts, wait, err)
		p.Metrics.ObserveRetry(op)
	}

	res, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return res, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if IsRateLimited(err) {
		return gjson.Result{}, &RetryExhaustedError{Op: op, Attempts: attempts, Last: err}
	}
	return gjson.Result{}, err
}

type retryInvoker struct {
	next   Invoker
	policy RetryPolicy
}

// WithRetry wraps next so every operation is retried under policy.
func WithRetry(next Invoker, policy RetryPolicy) Invoker {
	return &retryInvoker{next: next, policy: policy}
}

func (r *retryInvoker) Invoke(ctx context.Context, op string, params Params) (gjson.Result, error) {
	return r.policy.Do(ctx, op, func() (gjson.Result, error) {
		return r.next.Invoke(ctx, op, params)
	})
}
