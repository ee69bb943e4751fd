package redis

import (
	"context"
	"io"
)

// Shutdown returns a function that gracefully closes the Redis client,
// shaped to slot into the service's shutdown sequence.
func Shutdown(client io.Closer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Close()
	}
}
