// Package config — config_test.go
//
// Test coverage:
//   - Defaults() passes Validate()
//   - Load() with a minimal override file merges onto defaults
//   - Load() with a missing file returns an error
//   - Validate() accumulates multiple violations into one error
//   - Validate() rejects a VOI multiple ordering violation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults_PassValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Defaults() should be valid, got: %v", err)
	}
}

func TestLoad_MergesOverrideOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "node_id: test-node\ndecision:\n  default_algorithm: softmax\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NodeID != "test-node" {
		t.Fatalf("expected node_id override, got %q", cfg.NodeID)
	}
	if cfg.Decision.DefaultAlgorithm != "softmax" {
		t.Fatalf("expected default_algorithm override, got %q", cfg.Decision.DefaultAlgorithm)
	}
	// Unspecified fields keep their defaults.
	if cfg.Server.ListenAddr != "127.0.0.1:9443" {
		t.Fatalf("expected default listen_addr to survive merge, got %q", cfg.Server.ListenAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"
	cfg.NodeID = ""
	cfg.Server.MaxConnections = 0

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"schema_version", "node_id", "max_connections"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error message to mention %q, got: %s", want, msg)
		}
	}
}

func TestValidate_RejectsVOIMultipleOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Decision.VOIDoNowMultiple = 1.0
	cfg.Decision.VOIPlanLaterMultiple = 2.0

	if err := Validate(&cfg); err == nil {
		t.Fatal("expected error when voi_do_now_multiple <= voi_plan_later_multiple")
	}
}

func TestValidate_StorageRequiresPathWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Enabled = true
	cfg.Storage.DBPath = ""

	if err := Validate(&cfg); err == nil {
		t.Fatal("expected error for empty db_path with storage enabled")
	}
}
