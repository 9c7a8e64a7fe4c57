package infrastructure

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sethvargo/go-retry"
)

func connectNats(ctx context.Context, url string) (*nats.Conn, error) {
	var nc *nats.Conn

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		nc, err = nats.Connect(url)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}

	return nc, nil
}
