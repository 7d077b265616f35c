package tests

import (
	"testing"

	"github.com/rubato-audio/seqrpc/config"
	"github.com/rubato-audio/seqrpc/src/bridge"
)

func TestDefaultHostConfig(t *testing.T) {
	cfg := config.DefaultHostConfig()
	if cfg.Addr != ":8712" {
		t.Errorf("expected :8712, got %s", cfg.Addr)
	}
	if cfg.RPCPath != "/rpc" {
		t.Errorf("expected /rpc, got %s", cfg.RPCPath)
	}
	if cfg.WriteTimeout != 10 {
		t.Errorf("expected 10, got %d", cfg.WriteTimeout)
	}
	if cfg.ReadBufferSize != 1024 {
		t.Errorf("expected 1024, got %d", cfg.ReadBufferSize)
	}
	if cfg.WriteBufferSize != 1024 {
		t.Errorf("expected 1024, got %d", cfg.WriteBufferSize)
	}
}

func TestHostConfigFromEnv(t *testing.T) {
	t.Setenv("SEQRPC_HOST_ADDR", ":9000")
	t.Setenv("SEQRPC_HOST_RPC_PATH", "/bridge")
	t.Setenv("SEQRPC_HOST_WRITE_TIMEOUT", "30")

	cfg := config.HostConfigFromEnv()
	if cfg.Addr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Addr)
	}
	if cfg.RPCPath != "/bridge" {
		t.Errorf("expected /bridge, got %s", cfg.RPCPath)
	}
	if cfg.WriteTimeout != 30 {
		t.Errorf("expected 30, got %d", cfg.WriteTimeout)
	}
	if cfg.ReadBufferSize != 1024 {
		t.Errorf("expected read buffer default kept, got %d", cfg.ReadBufferSize)
	}
}

func TestHostConfigFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("SEQRPC_HOST_WRITE_TIMEOUT", "soon")

	cfg := config.HostConfigFromEnv()
	if cfg.WriteTimeout != 10 {
		t.Errorf("expected default 10, got %d", cfg.WriteTimeout)
	}
}

func TestDefaultSocketConfig(t *testing.T) {
	cfg := bridge.DefaultSocketConfig()
	if cfg.URL != "ws://localhost:8712/rpc" {
		t.Errorf("expected ws://localhost:8712/rpc, got %s", cfg.URL)
	}
}

func TestSocketConfigFromEnv(t *testing.T) {
	t.Setenv("SEQRPC_SOCKET_URL", "ws://engine.local:9000/bridge")

	cfg := bridge.SocketConfigFromEnv()
	if cfg.URL != "ws://engine.local:9000/bridge" {
		t.Errorf("expected ws://engine.local:9000/bridge, got %s", cfg.URL)
	}
}
