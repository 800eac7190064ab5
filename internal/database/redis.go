package database

import (
	"context"
	"fmt"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis configures a Redis client using the supplied URL.
func ConnectRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}

// EmbeddedRedis is an in-process cache tier used when no Redis server is configured.
type EmbeddedRedis struct {
	server *miniredis.Miniredis
	Client *redis.Client
}

// StartEmbeddedRedis runs a process-local cache tier. Its contents are rebuilt from the
// durable tier on demand, so losing them on restart is expected.
func StartEmbeddedRedis() (*EmbeddedRedis, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded cache: %w", err)
	}

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		server.Close()
		return nil, fmt.Errorf("unable to reach embedded cache: %w", err)
	}

	return &EmbeddedRedis{server: server, Client: client}, nil
}

// Close stops the embedded server and its client.
func (e *EmbeddedRedis) Close() error {
	if e == nil {
		return nil
	}
	err := e.Client.Close()
	e.server.Close()
	return err
}
