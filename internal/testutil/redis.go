package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
)

// Redis starts an in-process Redis and returns a client bound to it.
func Redis(tb testing.TB) (*miniredis.Miniredis, *redisv9.Client) {
	tb.Helper()

	mr := miniredis.RunT(tb)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })
	return mr, client
}
