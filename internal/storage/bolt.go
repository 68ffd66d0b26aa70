// Package storage — bolt.go
//
// BoltDB-backed persistent decision run ledger for octoreflex. This is
// the optional, non-core persistence collaborator named in system spec
// §1 ("persistent storage / capsule manifests" — out of scope for the
// core, wired here only as a sink the bootstrap shell may attach).
//
// Schema (BoltDB bucket layout):
//
//	/runs
//	    key:   fixed-width UTC timestamp (9 fractional digits) + "_" + fingerprint[:16]  [sortable]
//	    value: JSON-encoded RunRecord
//
//	/meta
//	    key:   "schema_version"
//	    value: "1"
//
// Consistency model:
//   - Single-process, single-writer (BoltDB does not support concurrent writers).
//   - All writes use ACID transactions (bbolt Tx.Commit()).
//   - Reads use read-only transactions (bbolt.View()).
//   - Meta-page magic/version/checksum validation on database open
//     (bbolt built-in).
//
// Retention:
//   - Run entries older than RetentionDays are pruned on startup and may
//     be pruned periodically by the caller.
//
// Failure modes:
//   - BoltDB file corruption: bbolt detects a damaged meta page via its
//     checksum and returns an error on Open(). The caller should refuse
//     to start.
//   - Disk full: bbolt.Update() returns an error; the caller logs it and
//     continues without persisting (in-memory evaluation is unaffected —
//     the decision kernel has no dependency on this package).
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/invariant"
)

// schemaChecker applies invariant.Checker.SnapshotEqual to the on-disk
// schema version rather than a raw string comparison, so a mismatch is
// counted and logged through the same violation path every other
// byte-equality gate in this domain uses.
var schemaChecker = invariant.NewChecker(zap.NewNop())

const (
	// DefaultDBPath is the default BoltDB file location.
	DefaultDBPath = "/var/lib/octoreflex/octoreflex.db"

	// SchemaVersion is the current database schema version.
	SchemaVersion = "1"

	// DefaultRetentionDays is the default run-ledger retention period.
	DefaultRetentionDays = 30

	// bucketRuns is the BoltDB bucket name for decision run records.
	bucketRuns = "runs"

	// bucketMeta is the BoltDB bucket name for schema metadata.
	bucketMeta = "meta"
)

// RunRecord is one persisted (fingerprint, output, timestamp) tuple
// (system spec SPEC_FULL §6 "Decision run ledger"). Callers pass in
// already-serialized output JSON rather than this package importing
// internal/decision (storage imports neither decision nor protocol), with
// the caller gluing the two together.
type RunRecord struct {
	// Timestamp is when the run was evaluated.
	Timestamp time.Time `json:"timestamp"`

	// InputID is the caller-supplied DecisionInput.ID, if any.
	InputID string `json:"input_id"`

	// Fingerprint is the SHA-256 fingerprint of the canonical input
	// (system spec §4.C).
	Fingerprint string `json:"fingerprint"`

	// Algorithm is the criterion key used for this run.
	Algorithm string `json:"algorithm"`

	// RecommendedAction is RankedActions[0].ActionID.
	RecommendedAction string `json:"recommended_action"`

	// OutputJSON is the caller-serialized output of the run, stored
	// verbatim for replay/audit. octoreflex-sim stores the encoding/json
	// form of the document it prints, not a canonical encoding.
	OutputJSON []byte `json:"output_json"`

	// NodeID is the octoreflex node that recorded this entry.
	NodeID string `json:"node_id"`

	// EngineVersion is the MAJOR.MINOR.PATCH build that produced this
	// record, used by invariant.Checker's semver gates to decide whether a
	// later duplicate-fingerprint hit is a trusted replay.
	EngineVersion string `json:"engine_version"`
}

// DB wraps a BoltDB instance with typed accessors for the decision run
// ledger.
type DB struct {
	db            *bolt.DB
	retentionDays int
}

// Open opens (or creates) the BoltDB database at the given path.
// Initialises all required buckets and verifies the schema version.
// Returns an error if the database is corrupt or schema is incompatible.
func Open(path string, retentionDays int) (*DB, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:      5 * time.Second,
		NoGrowSync:   false,
		FreelistType: bolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	d := &DB{db: bdb, retentionDays: retentionDays}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}

		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("write schema_version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}

	if err := d.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return d, nil
}

// checkSchemaVersion reads and validates the stored schema version.
func (d *DB) checkSchemaVersion() error {
	return d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		v := meta.Get([]byte("schema_version"))
		if err := schemaChecker.SnapshotEqual(string(v), SchemaVersion); err != nil {
			return fmt.Errorf(
				"schema version mismatch: database has %q, engine requires %q. "+
					"Run migration or restore from backup: %w",
				string(v), SchemaVersion, err,
			)
		}
		return nil
	})
}

// Close closes the underlying BoltDB file.
func (d *DB) Close() error {
	return d.db.Close()
}

// runKey constructs a sortable BoltDB key for a run record.
// Format: fixed-width UTC timestamp with nanoseconds + "_" + fingerprint
// prefix. Lexicographic sort = chronological sort.
func runKey(t time.Time, fingerprint string) []byte {
	prefix := fingerprint
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	return []byte(fmt.Sprintf("%s_%s", t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), prefix))
}

// AppendRun writes a new decision run record.
// Uses a single ACID write transaction.
func (d *DB) AppendRun(rec RunRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("AppendRun marshal: %w", err)
	}

	key := runKey(rec.Timestamp, rec.Fingerprint)

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("AppendRun bolt.Put: %w", err)
		}
		return nil
	})
}

// PruneOldRuns deletes run records older than retentionDays.
// Called on startup and optionally on a periodic schedule by the caller.
// Returns the number of entries deleted.
func (d *DB) PruneOldRuns() (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -d.retentionDays)
	cutoffKey := runKey(cutoff, "")

	var deleted int
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		c := b.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if string(k) >= string(cutoffKey) {
				break
			}
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			toDelete = append(toDelete, keyCopy)
		}

		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("PruneOldRuns delete: %w", err)
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// ReadRuns returns all run records in chronological order.
// For operational use (CLI inspection, replay). Not called on the hot
// path.
func (d *DB) ReadRuns() ([]RunRecord, error) {
	var entries []RunRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		return b.ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			entries = append(entries, rec)
			return nil
		})
	})
	return entries, err
}

// FindByFingerprint returns the most recent run record matching the given
// fingerprint, or (nil, nil) if none exists (system spec §4.C "equality
// of fingerprints implies equality of canonical form" — a replay lookup
// by fingerprint is a direct consequence of that invariant).
func (d *DB) FindByFingerprint(fingerprint string) (*RunRecord, error) {
	runs, err := d.ReadRuns()
	if err != nil {
		return nil, err
	}
	var latest *RunRecord
	for i := range runs {
		if runs[i].Fingerprint != fingerprint {
			continue
		}
		if latest == nil || runs[i].Timestamp.After(latest.Timestamp) {
			r := runs[i]
			latest = &r
		}
	}
	return latest, nil
}
