// Package state manages buildctl's persistent run history using BoltDB.
// All writes are transactional; reads use read-only transactions to minimise contention.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	v1 "github.com/f9-o/buildctl/api/v1"
)

// Bucket names
var (
	bucketRuns       = []byte("runs")
	bucketBootstraps = []byte("bootstraps")
)

// DB wraps a BoltDB instance with typed accessor methods.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the state database at the given path.
// The file lock is awaited for at most two seconds so a concurrent
// invocation holding the database fails fast instead of hanging.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db %q: %w", path, err)
	}

	// Ensure all buckets exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRuns, bucketBootstraps} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &DB{bolt: db}, nil
}

// Close closes the underlying BoltDB file.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Run history
// ─────────────────────────────────────────────────────────────────────────────

// PutRun appends a dispatch record to the history.
func (db *DB) PutRun(rec v1.RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("run record without id")
	}
	return db.putJSON(bucketRuns, rec.ID, rec)
}

// GetRun retrieves a RunRecord by id. Returns nil, nil if not found.
func (db *DB) GetRun(id string) (*v1.RunRecord, error) {
	var rec v1.RunRecord
	found, err := db.getJSON(bucketRuns, id, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// ListRuns returns run records newest first, optionally filtered by action.
// A limit of zero or less returns every match.
func (db *DB) ListRuns(action string, limit int) ([]v1.RunRecord, error) {
	var recs []v1.RunRecord
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var r v1.RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal run %q: %w", k, err)
			}
			if action == "" || r.Action == action {
				recs = append(recs, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].StartedAt.After(recs[j].StartedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bootstrap history
// ─────────────────────────────────────────────────────────────────────────────

// PutBootstrap appends a bootstrap attempt to the history.
func (db *DB) PutBootstrap(rec v1.BootstrapRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("bootstrap record without id")
	}
	return db.putJSON(bucketBootstraps, rec.ID, rec)
}

// ListBootstraps returns bootstrap records newest first.
func (db *DB) ListBootstraps(limit int) ([]v1.BootstrapRecord, error) {
	var recs []v1.BootstrapRecord
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBootstraps).ForEach(func(k, v []byte) error {
			var r v1.BootstrapRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal bootstrap %q: %w", k, err)
			}
			recs = append(recs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].StartedAt.After(recs[j].StartedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic helpers
// ─────────────────────────────────────────────────────────────────────────────

func (db *DB) putJSON(bucket []byte, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (db *DB) getJSON(bucket []byte, key string, out any) (bool, error) {
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	return found, err
}
