package rpcconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	t.Setenv(EnvVar, filepath.Join(t.TempDir(), "nope.yaml"))
	cfg := Load()
	if cfg != Default() {
		t.Fatalf("got %+v, want %+v", cfg, Default())
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "address: rpc.internal:8443\ntls: false\ndial_timeout: 2s\ncall_timeout: 10s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvVar, path)

	cfg := Load()
	if cfg.Address != "rpc.internal:8443" {
		t.Errorf("got address %q", cfg.Address)
	}
	if cfg.TLS {
		t.Error("expected tls=false")
	}
	if cfg.DialTimeout.String() != "2s" || cfg.CallTimeout.String() != "10s" {
		t.Errorf("got timeouts %v/%v", cfg.DialTimeout, cfg.CallTimeout)
	}
}

func TestLoadMalformedFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvVar, path)

	cfg := Load()
	if cfg != Default() {
		t.Fatalf("got %+v, want default on malformed file", cfg)
	}
}
