package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "CHAINLIST_URL", "DIRECTORY_REFRESH_INTERVAL", "RPC_ATTEMPT_TIMEOUT",
		"BALANCE_CACHE_TTL", "ENDPOINT_RPM", "LOG_LEVEL", "CONFIG_FILE"} {
		os.Unsetenv(k)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != "8080" {
		t.Fatalf("port=%s", c.Port)
	}
	if c.ChainlistURL != "https://chainid.network/chains.json" {
		t.Fatalf("chainlist=%s", c.ChainlistURL)
	}
	if c.DirectoryRefreshInterval != 24*time.Hour || c.RPCAttemptTimeout != 8*time.Second {
		t.Fatalf("durations: %+v", c)
	}
	if c.BalanceCacheTTL != 15*time.Second || c.BalanceCacheSize != 10_000 {
		t.Fatalf("cache: %+v", c)
	}
	if c.EndpointRPM != 0 || c.Log.Level != "info" {
		t.Fatalf("invalid defaults: %+v", c)
	}
	if c.MaxConcurrency != 16 || c.RequestTimeout != 30*time.Second {
		t.Fatalf("server: %+v", c)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENDPOINT_RPM", "123")
	t.Setenv("BALANCE_CACHE_TTL", "150ms")
	t.Setenv("RPC_ATTEMPT_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != "9090" {
		t.Fatalf("port=%s", c.Port)
	}
	if c.EndpointRPM != 123 {
		t.Fatalf("rpm=%d", c.EndpointRPM)
	}
	if c.BalanceCacheTTL != 150*time.Millisecond || c.RPCAttemptTimeout != 2*time.Second {
		t.Fatalf("durations not applied")
	}
	if c.Log.Level != "debug" || c.Log.Format != "console" {
		t.Fatalf("log=%+v", c.Log)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainbadge.toml")
	body := "port = \"7070\"\nendpoint_rpm = 30\n\n[log]\nlevel = \"warn\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENDPOINT_RPM", "45")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != "7070" || c.Log.Level != "warn" {
		t.Fatalf("file not applied: %+v", c)
	}
	if c.EndpointRPM != 45 {
		t.Fatalf("env should win, rpm=%d", c.EndpointRPM)
	}
}

func TestLoad_HostPort(t *testing.T) {
	for _, p := range []string{"127.0.0.1:9000", ":9000", "localhost:9000"} {
		t.Setenv("PORT", p)
		c, err := Load("")
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if c.Port != p {
			t.Fatalf("port=%s", c.Port)
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error")
	}

	t.Setenv("PORT", "localhost:99999")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected port range error")
	}

	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected log level error")
	}
}
