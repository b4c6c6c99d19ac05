package storage

import (
	"fmt"
	"strings"
	"time"
)

// Key layouts inside each bucket. Segments are joined with '/' so the
// byte order of a bucket cursor matches the tuple order:
//
//	monitors:       <id>
//	history:        <monitor_id>/<time_key>-<record_id>
//	sessions:       <token>
//	login_attempts: <ip>/<time_key>-<id>
//	system_logs:    <time_key>/<id>
//
// Time-carrying namespaces embed a left-zero-padded 20-digit millisecond
// timestamp so a reverse scan yields newest-first without a secondary
// index, and a forward scan oldest-first.

// timeKey renders t as a 20-digit zero-padded millisecond string.
func timeKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixMilli())
}

// key joins tuple segments into a bucket key.
func key(segments ...string) []byte {
	return []byte(strings.Join(segments, "/"))
}

// monitorKey addresses one monitor config.
func monitorKey(id string) []byte {
	return key(id)
}

// historyKey addresses one probe outcome. The record id is suffixed to the
// time key so two outcomes in the same millisecond still get distinct keys.
func historyKey(monitorID string, ts time.Time, recordID string) []byte {
	return key(monitorID, timeKey(ts)+"-"+recordID)
}

// historyPrefix addresses every outcome of one monitor.
func historyPrefix(monitorID string) []byte {
	return key(monitorID, "")
}

// sessionKey addresses one session by its opaque token.
func sessionKey(token string) []byte {
	return key(token)
}

// attemptKey addresses one login attempt.
func attemptKey(ip string, ts time.Time, id string) []byte {
	return key(ip, timeKey(ts)+"-"+id)
}

// attemptPrefix addresses every attempt from one IP.
func attemptPrefix(ip string) []byte {
	return key(ip, "")
}

// systemLogKey addresses one system log entry; chronological bucket order
// falls out of the leading time key.
func systemLogKey(ts time.Time, id string) []byte {
	return key(timeKey(ts), id)
}
