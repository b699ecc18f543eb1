package httpapi

import (
	"net/http"
	"sync"
	"time"
)

type auditEntry struct {
	Time       time.Time `json:"time"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// auditLog keeps a bounded in-memory trail of mutating API calls.
type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
}

func newAuditLog(max int) *auditLog {
	if max <= 0 {
		max = 200
	}
	return &auditLog{max: max}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

func (l *auditLog) snapshot() []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithAudit records mutating requests into the audit trail and exposes it at
// GET /audit.
func WithAudit(next http.Handler) http.Handler {
	log := newAuditLog(200)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/audit" && r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, log.snapshot())
			return
		}
		if r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.add(auditEntry{
			Time:       time.Now().UTC(),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}
