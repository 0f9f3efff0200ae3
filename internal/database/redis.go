package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheTimeout bounds redis reads and writes; the homework cache is
// best effort and must not hold a request up.
const cacheTimeout = 3 * time.Second

// ConnectRedis configures the client backing the homework cache and the
// event fan-out when NATS is not configured.
func ConnectRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = cacheTimeout
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = cacheTimeout
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}
