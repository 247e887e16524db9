package config

import (
	"os"

	"github.com/hibiken/asynq"
)

// NewRedisOpt builds the Redis connection options shared by the asynq client
// and worker.
func NewRedisOpt() asynq.RedisClientOpt {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}
