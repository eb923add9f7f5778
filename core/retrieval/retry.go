package retrieval

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry runs op and retries failures up to retries times with
// exponential backoff starting at interval. Context errors are not retried.
func withRetry[T any](ctx context.Context, retries int, interval time.Duration, op func() (T, error)) (T, error) {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = interval
	exponential.MaxElapsedTime = 0

	var policy backoff.BackOff = exponential
	if interval <= 0 {
		policy = &backoff.ZeroBackOff{}
	}
	policy = backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(retries, 0))), ctx)

	var result T
	err := backoff.Retry(func() error {
		var err error
		result, err = op()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return result, err
}
