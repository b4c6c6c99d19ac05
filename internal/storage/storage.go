// Package storage provides the ordered key-value persistence layer for the
// webwatch monitoring system.
//
// The store is backed by bbolt, an embedded B+tree whose buckets iterate in
// byte order. Each top-level namespace (monitors, history, sessions, login
// attempts, system logs) lives in its own bucket; keys inside a bucket are
// tuple segments joined with '/' so that prefix range scans stay cheap and
// lexicographic order matches the layouts in keys.go.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names, one per key namespace.
var (
	bucketMonitors      = []byte("monitors")
	bucketHistory       = []byte("history")
	bucketSessions      = []byte("sessions")
	bucketLoginAttempts = []byte("login_attempts")
	bucketSystemLogs    = []byte("system_logs")
)

// errStopScan terminates a range scan early without reporting failure.
var errStopScan = errors.New("stop scan")

// Store wraps the bbolt database handle and provides bucket-scoped
// primitives used by the typed repositories in repository.go.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path and ensures all
// namespace buckets exist.
//
// The 1s file-lock timeout turns a concurrent second process into a
// startup error instead of a hang.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMonitors, bucketHistory, bucketSessions, bucketLoginAttempts, bucketSystemLogs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// get returns the raw value stored under key, or nil if absent.
func (s *Store) get(bucket, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(key); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return out, nil
}

// put stores value under key, overwriting any previous value.
func (s *Store) put(bucket, key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// del removes key. Deleting an absent key is a no-op that reports success.
func (s *Store) del(bucket, key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// scan iterates entries whose key starts with prefix, in ascending key
// order, or descending when reverse is set. A limit <= 0 means unbounded.
// The callback may return errStopScan to end the scan without error.
func (s *Store) scan(bucket, prefix []byte, reverse bool, limit int, fn func(k, v []byte) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		seen := 0

		visit := func(k, v []byte) (bool, error) {
			if limit > 0 && seen >= limit {
				return false, nil
			}
			seen++
			if err := fn(k, v); err != nil {
				if errors.Is(err, errStopScan) {
					return false, nil
				}
				return false, err
			}
			return true, nil
		}

		if !reverse {
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				if cont, err := visit(k, v); !cont || err != nil {
					return err
				}
			}
			return nil
		}

		// Reverse scan: position the cursor just past the prefix range,
		// then walk backwards while keys still match.
		var k, v []byte
		if end := prefixEnd(prefix); end == nil {
			k, v = c.Last()
		} else if k, v = c.Seek(end); k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			if cont, err := visit(k, v); !cont || err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s/%s: %w", bucket, prefix, err)
	}
	return nil
}

// deletePrefix removes every entry whose key starts with prefix and
// returns the number of entries removed.
func (s *Store) deletePrefix(bucket, prefix []byte) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("delete prefix %s/%s: %w", bucket, prefix, err)
	}
	return deleted, nil
}

// deletePrefixRange removes every entry whose key sorts strictly before
// bound and returns the number of entries removed. Useful for buckets
// whose keys lead with a time component.
func (s *Store) deletePrefixRange(bucket, bound []byte) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, bound) < 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("delete range %s: %w", bucket, err)
	}
	return deleted, nil
}

// deleteWhere removes every entry under prefix for which pred returns
// true and reports the number of entries removed.
func (s *Store) deleteWhere(bucket, prefix []byte, pred func(k, v []byte) bool) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		var matches [][]byte
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if pred(k, v) {
				matches = append(matches, append([]byte(nil), k...))
			}
		}
		for _, k := range matches {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("delete where %s/%s: %w", bucket, prefix, err)
	}
	return deleted, nil
}

// prefixEnd returns the smallest key greater than every key that starts
// with prefix, or nil when the prefix range extends to the end of the
// bucket (empty or all-0xff prefixes).
func prefixEnd(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0xff {
			end := append([]byte(nil), prefix[:i+1]...)
			end[i]++
			return end
		}
	}
	return nil
}
