// Package storage provides typed repository implementations over the
// ordered key-value store.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Repositories bundles the typed repositories sharing one store handle.
type Repositories struct {
	Monitors   *MonitorRepo
	History    *HistoryRepo
	Sessions   *SessionRepo
	Attempts   *AttemptRepo
	SystemLogs *SystemLogRepo
}

// NewRepositories creates the repository set for a store.
func NewRepositories(s *Store) *Repositories {
	history := &HistoryRepo{store: s}
	return &Repositories{
		Monitors:   &MonitorRepo{store: s, history: history},
		History:    history,
		Sessions:   &SessionRepo{store: s},
		Attempts:   &AttemptRepo{store: s},
		SystemLogs: &SystemLogRepo{store: s},
	}
}

// MonitorRepo persists monitor configs under (monitors, <id>).
type MonitorRepo struct {
	store   *Store
	history *HistoryRepo
}

// Save writes the monitor, overwriting any previous version.
func (r *MonitorRepo) Save(m *Monitor) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal monitor %s: %w", m.ID, err)
	}
	return r.store.put(bucketMonitors, monitorKey(m.ID), data)
}

// Get returns the monitor with the given id, or nil if absent.
func (r *MonitorRepo) Get(id string) (*Monitor, error) {
	data, err := r.store.get(bucketMonitors, monitorKey(id))
	if err != nil || data == nil {
		return nil, err
	}
	var m Monitor
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal monitor %s: %w", id, err)
	}
	return &m, nil
}

// List returns all monitors ordered by creation time.
func (r *MonitorRepo) List() ([]*Monitor, error) {
	monitors := []*Monitor{}
	err := r.store.scan(bucketMonitors, nil, false, 0, func(k, v []byte) error {
		var m Monitor
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("unmarshal monitor %s: %w", k, err)
		}
		monitors = append(monitors, &m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys are random UUIDs, so bucket order is meaningless; present
	// monitors in creation order instead.
	sort.Slice(monitors, func(i, j int) bool {
		return monitors[i].CreatedAt.Before(monitors[j].CreatedAt)
	})
	return monitors, nil
}

// Delete removes the monitor and cascades to its history records.
// Deleting an unknown id reports existed=false without error.
//
// The cascade is best-effort: the store is not transactional across
// namespaces and readers tolerate orphan history, which retention will
// eventually collect.
func (r *MonitorRepo) Delete(id string) (bool, error) {
	existing, err := r.Get(id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err := r.store.del(bucketMonitors, monitorKey(id)); err != nil {
		return false, err
	}
	if removed, err := r.history.DeleteByMonitor(id); err != nil {
		log.Warn().Err(err).Str("monitor_id", id).Int("removed", removed).
			Msg("History cascade delete incomplete")
	}
	return true, nil
}

// HistoryRepo persists probe outcomes under
// (history, <monitor_id>, <time_key>-<record_id>).
type HistoryRepo struct {
	store *Store
}

// Append writes one terminal probe outcome. Records are never mutated.
func (r *HistoryRepo) Append(rec *HistoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history %s: %w", rec.ID, err)
	}
	return r.store.put(bucketHistory, historyKey(rec.MonitorID, rec.Timestamp, rec.ID), data)
}

// ListByMonitor returns up to limit records for a monitor, newest first.
// A limit <= 0 means unbounded.
func (r *HistoryRepo) ListByMonitor(monitorID string, limit int) ([]*HistoryRecord, error) {
	records := []*HistoryRecord{}
	err := r.store.scan(bucketHistory, historyPrefix(monitorID), true, limit, func(k, v []byte) error {
		var rec HistoryRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal history %s: %w", k, err)
		}
		records = append(records, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ScanReverse walks a monitor's records newest-first and stops as soon as
// fn returns false. Used by the stats engine to bound window scans.
func (r *HistoryRepo) ScanReverse(monitorID string, fn func(*HistoryRecord) bool) error {
	return r.store.scan(bucketHistory, historyPrefix(monitorID), true, 0, func(k, v []byte) error {
		var rec HistoryRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("unmarshal history %s: %w", k, err)
		}
		if !fn(&rec) {
			return errStopScan
		}
		return nil
	})
}

// DeleteByMonitor removes every record of one monitor.
func (r *HistoryRepo) DeleteByMonitor(monitorID string) (int, error) {
	return r.store.deletePrefix(bucketHistory, historyPrefix(monitorID))
}

// DeleteOlderThan removes records with a timestamp before cutoff across
// all monitors. The probe time is embedded in the key, so no values need
// to be decoded.
func (r *HistoryRepo) DeleteOlderThan(cutoff time.Time) (int, error) {
	cutoffKey := timeKey(cutoff)
	return r.store.deleteWhere(bucketHistory, nil, func(k, _ []byte) bool {
		_, rest, ok := strings.Cut(string(k), "/")
		return ok && len(rest) >= 20 && rest[:20] < cutoffKey
	})
}

// SessionRepo persists admin sessions under (sessions, <token>).
type SessionRepo struct {
	store *Store
}

// Save writes the session.
func (r *SessionRepo) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.store.put(bucketSessions, sessionKey(s.ID), data)
}

// Get returns the session for a token, or nil if absent. Expiry is the
// caller's concern; the repository returns whatever is stored.
func (r *SessionRepo) Get(token string) (*Session, error) {
	data, err := r.store.get(bucketSessions, sessionKey(token))
	if err != nil || data == nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes the session for a token. Unknown tokens are a no-op.
func (r *SessionRepo) Delete(token string) error {
	return r.store.del(bucketSessions, sessionKey(token))
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(now time.Time) (int, error) {
	return r.store.deleteWhere(bucketSessions, nil, func(_, v []byte) bool {
		var s Session
		if err := json.Unmarshal(v, &s); err != nil {
			return false
		}
		return s.Expired(now)
	})
}

// AttemptRepo persists login attempts under
// (login_attempts, <ip>, <time_key>-<id>).
type AttemptRepo struct {
	store *Store
}

// Append records one login attempt.
func (r *AttemptRepo) Append(a *LoginAttempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal login attempt: %w", err)
	}
	return r.store.put(bucketLoginAttempts, attemptKey(a.IP, a.Timestamp, uuid.NewString()), data)
}

// CountFailuresSince counts failed attempts from ip at or after since.
// The reverse scan stops at the first attempt older than the window.
func (r *AttemptRepo) CountFailuresSince(ip string, since time.Time) (int, error) {
	count := 0
	err := r.store.scan(bucketLoginAttempts, attemptPrefix(ip), true, 0, func(k, v []byte) error {
		var a LoginAttempt
		if err := json.Unmarshal(v, &a); err != nil {
			return fmt.Errorf("unmarshal login attempt %s: %w", k, err)
		}
		if a.Timestamp.Before(since) {
			return errStopScan
		}
		if !a.Success {
			count++
		}
		return nil
	})
	return count, err
}

// DeleteOlderThan removes attempts recorded before cutoff.
func (r *AttemptRepo) DeleteOlderThan(cutoff time.Time) (int, error) {
	cutoffKey := timeKey(cutoff)
	return r.store.deleteWhere(bucketLoginAttempts, nil, func(k, _ []byte) bool {
		_, rest, ok := strings.Cut(string(k), "/")
		return ok && len(rest) >= 20 && rest[:20] < cutoffKey
	})
}

// SystemLogFilter narrows a system log query. Zero values mean no filter.
type SystemLogFilter struct {
	Level     string // exact level match
	MonitorID string // exact monitor match
	Search    string // case-insensitive substring of the message
	Offset    int
	Limit     int
	MaxScan   int // newest-first scan window; <= 0 disables the cap
}

// SystemLogRepo persists system log entries under
// (system_logs, <time_key>, <id>), so bucket order is chronological.
type SystemLogRepo struct {
	store *Store
}

// Append writes one log entry.
func (r *SystemLogRepo) Append(entry *SystemLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal system log %s: %w", entry.ID, err)
	}
	return r.store.put(bucketSystemLogs, systemLogKey(entry.Timestamp, entry.ID), data)
}

// List scans at most filter.MaxScan entries newest-first, applies the
// filters in memory, and returns the requested page plus the number of
// matches inside the scan window. The count is exact only within that
// window and otherwise a lower bound.
func (r *SystemLogRepo) List(filter SystemLogFilter) ([]*SystemLog, int, error) {
	matched := []*SystemLog{}
	search := strings.ToLower(filter.Search)

	err := r.store.scan(bucketSystemLogs, nil, true, filter.MaxScan, func(k, v []byte) error {
		var entry SystemLog
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("unmarshal system log %s: %w", k, err)
		}
		if filter.Level != "" && entry.Level != filter.Level {
			return nil
		}
		if filter.MonitorID != "" && entry.MonitorID != filter.MonitorID {
			return nil
		}
		if search != "" && !strings.Contains(strings.ToLower(entry.Message), search) {
			return nil
		}
		matched = append(matched, &entry)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total := len(matched)
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

// DeleteOlderThan removes entries recorded before cutoff. The timestamp
// leads the key, so the scan stops at the cutoff boundary.
func (r *SystemLogRepo) DeleteOlderThan(cutoff time.Time) (int, error) {
	deleted, err := r.store.deletePrefixRange(bucketSystemLogs, []byte(timeKey(cutoff)))
	return deleted, err
}
