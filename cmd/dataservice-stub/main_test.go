package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("NETFIELD_CONFIG", "/nonexistent/path/stub.yaml")

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingFixtures(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stub.yaml")
	content := "stub:\n  port: 18090\n  fixtures: " + filepath.Join(dir, "missing.yaml") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NETFIELD_CONFIG", configPath)

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail when the fixture file is missing")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures.yaml")
	if err := os.WriteFile(fixtures, []byte("keys:\n  - api_key: k\n"), 0600); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "stub.yaml")
	content := "stub:\n  host: 127.0.0.1\n  port: 18091\n  fixtures: " + fixtures + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NETFIELD_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("NETFIELD_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("NETFIELD_CONFIG", "/x/stub.yaml")
	if got := getConfigPath(); got != "/x/stub.yaml" {
		t.Errorf("getConfigPath() = %q, want /x/stub.yaml", got)
	}
}
