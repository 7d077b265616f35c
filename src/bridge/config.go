package bridge

import (
	"os"
	"strconv"
)

// RedisConfig holds connection settings for the Redis rpc bus.
type RedisConfig struct {
	Addr     string // Redis address, default "localhost:6379"
	Password string // Redis password, default ""
	DB       int    // Redis database number, default 0
	Prefix   string // bus key prefix, default "seqrpc:"
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "seqrpc:",
	}
}

// RedisConfigFromEnv loads Redis configuration from environment variables.
// Falls back to defaults for any missing values.
func RedisConfigFromEnv() *RedisConfig {
	cfg := DefaultRedisConfig()

	if addr := os.Getenv("SEQRPC_REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if pw := os.Getenv("SEQRPC_REDIS_PASSWORD"); pw != "" {
		cfg.Password = pw
	}
	if dbStr := os.Getenv("SEQRPC_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.DB = db
		}
	}
	if prefix := os.Getenv("SEQRPC_REDIS_PREFIX"); prefix != "" {
		cfg.Prefix = prefix
	}
	return cfg
}

// SocketConfig holds settings for dialing an engine host's WebSocket rpc
// endpoint.
type SocketConfig struct {
	URL string // endpoint URL, default "ws://localhost:8712/rpc"
}

// DefaultSocketConfig returns a SocketConfig with sensible defaults.
func DefaultSocketConfig() *SocketConfig {
	return &SocketConfig{URL: "ws://localhost:8712/rpc"}
}

// SocketConfigFromEnv loads socket configuration from environment
// variables. Falls back to defaults for any missing values.
func SocketConfigFromEnv() *SocketConfig {
	cfg := DefaultSocketConfig()

	if url := os.Getenv("SEQRPC_SOCKET_URL"); url != "" {
		cfg.URL = url
	}
	return cfg
}
