package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hoangnv-dev/taskhub/internal/config"
)

// NewRedis creates the Redis client backing Taskhub's session storage. It
// parses the URL, connects, and pings to verify connectivity before
// returning. Redis holds every access and refresh bundle, so a server that
// can't reach it can't authenticate anyone; startup aborts instead of
// limping along.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	// Name the connection so CLIENT LIST on a shared Redis shows which
	// connections belong to Taskhub.
	opts.ClientName = "taskhub"

	client := redis.NewClient(opts)

	// Verify the connection is alive before returning.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	slog.Info("connected to redis", slog.String("addr", opts.Addr))
	return client, nil
}
