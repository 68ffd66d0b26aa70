// Package storage — bolt_test.go
//
// Test coverage:
//   - Open() creates buckets and writes the schema version on a fresh file
//   - AppendRun() + ReadRuns() round-trip
//   - FindByFingerprint() returns the most recent matching record
//   - PruneOldRuns() removes entries older than the retention window
package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T, retentionDays int) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "octoreflex.db")
	db, err := Open(path, retentionDays)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_FreshDatabase(t *testing.T) {
	db := openTestDB(t, 30)
	if err := db.checkSchemaVersion(); err != nil {
		t.Fatalf("fresh database should carry the current schema version: %v", err)
	}
}

func TestAppendRun_ReadRuns_RoundTrip(t *testing.T) {
	db := openTestDB(t, 30)

	rec := RunRecord{
		InputID:           "input-1",
		Fingerprint:       "abc123",
		Algorithm:         "maximin",
		RecommendedAction: "action_b",
		OutputJSON:        []byte(`{"ok":true}`),
		NodeID:            "node-1",
	}
	if err := db.AppendRun(rec); err != nil {
		t.Fatalf("AppendRun: %v", err)
	}

	runs, err := db.ReadRuns()
	if err != nil {
		t.Fatalf("ReadRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Fingerprint != "abc123" || runs[0].RecommendedAction != "action_b" {
		t.Fatalf("unexpected run record: %+v", runs[0])
	}
}

func TestFindByFingerprint_ReturnsMostRecent(t *testing.T) {
	db := openTestDB(t, 30)

	older := RunRecord{Fingerprint: "dup", Timestamp: time.Now().Add(-time.Hour), RecommendedAction: "first"}
	newer := RunRecord{Fingerprint: "dup", Timestamp: time.Now(), RecommendedAction: "second"}
	if err := db.AppendRun(older); err != nil {
		t.Fatalf("AppendRun older: %v", err)
	}
	if err := db.AppendRun(newer); err != nil {
		t.Fatalf("AppendRun newer: %v", err)
	}

	got, err := db.FindByFingerprint("dup")
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.RecommendedAction != "second" {
		t.Fatalf("expected the most recent record, got %+v", got)
	}
}

func TestFindByFingerprint_NoMatch(t *testing.T) {
	db := openTestDB(t, 30)
	got, err := db.FindByFingerprint("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestPruneOldRuns_RemovesExpiredEntries(t *testing.T) {
	db := openTestDB(t, 1)

	old := RunRecord{Fingerprint: "old", Timestamp: time.Now().AddDate(0, 0, -10)}
	fresh := RunRecord{Fingerprint: "fresh", Timestamp: time.Now()}
	if err := db.AppendRun(old); err != nil {
		t.Fatalf("AppendRun old: %v", err)
	}
	if err := db.AppendRun(fresh); err != nil {
		t.Fatalf("AppendRun fresh: %v", err)
	}

	deleted, err := db.PruneOldRuns()
	if err != nil {
		t.Fatalf("PruneOldRuns: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted entry, got %d", deleted)
	}

	runs, err := db.ReadRuns()
	if err != nil {
		t.Fatalf("ReadRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Fingerprint != "fresh" {
		t.Fatalf("expected only the fresh run to survive, got %+v", runs)
	}
}
