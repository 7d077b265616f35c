// Package config holds the engine host configuration.
package config

import (
	"os"
	"strconv"
)

// HostConfig holds the engine host server configuration.
type HostConfig struct {
	Addr            string `json:"addr"`
	RPCPath         string `json:"rpc_path"`
	WriteTimeout    int    `json:"write_timeout_seconds"`
	ReadBufferSize  int    `json:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size"`
}

// DefaultHostConfig returns the default engine host configuration.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		Addr:            ":8712",
		RPCPath:         "/rpc",
		WriteTimeout:    10,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// HostConfigFromEnv loads the host configuration from environment
// variables. Falls back to defaults for any missing values.
func HostConfigFromEnv() *HostConfig {
	cfg := DefaultHostConfig()

	if addr := os.Getenv("SEQRPC_HOST_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if path := os.Getenv("SEQRPC_HOST_RPC_PATH"); path != "" {
		cfg.RPCPath = path
	}
	if s := os.Getenv("SEQRPC_HOST_WRITE_TIMEOUT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.WriteTimeout = n
		}
	}
	if s := os.Getenv("SEQRPC_HOST_READ_BUFFER"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.ReadBufferSize = n
		}
	}
	if s := os.Getenv("SEQRPC_HOST_WRITE_BUFFER"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.WriteBufferSize = n
		}
	}
	return cfg
}
