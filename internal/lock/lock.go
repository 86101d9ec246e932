// Package lock implements the transaction-scoped write lock described in
// spec.md §4.1: a filesystem rendezvous that serializes writers to the
// vector and graph stores across processes, with stale-holder detection so
// a crashed process never wedges the system.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultLockTimeout is the default duration acquire_write polls for before
// giving up, per spec.md §4.1/§5.
const DefaultLockTimeout = 10 * time.Second

// DefaultStaleThreshold is the age beyond which a lock file is treated as
// reclaimable even if its holder PID looks alive, per spec.md §4.1/§5.
const DefaultStaleThreshold = 30 * time.Second

// pollInterval is the fixed polling cadence while waiting for a busy lock.
const pollInterval = 100 * time.Millisecond

// ErrBusy is returned by Acquire when the lock could not be obtained before
// ctx's deadline or the configured timeout elapsed.
var ErrBusy = fmt.Errorf("lock: busy")

// Manager guards a single well-known lock file in the data directory. A
// Manager is safe for concurrent use by multiple goroutines within one
// process; cross-process exclusion is provided by the lock file's content
// and the stale-holder check, not by any in-process mutex (the in-process
// caller is expected to serialize through the Manager's API regardless).
type Manager struct {
	path           string
	staleThreshold time.Duration
	logger         *slog.Logger
}

// Lock represents a held write lock. Release must be called exactly once to
// return it.
type Lock struct {
	mgr *Manager
}

// New creates a Manager guarding the lock file at path (e.g.
// "<data-dir>/locks/write.lock"). The file's parent directory must already
// exist.
func New(path string, staleThreshold time.Duration, logger *slog.Logger) *Manager {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, staleThreshold: staleThreshold, logger: logger}
}

// Acquire attempts to obtain the exclusive write lock, polling at 100ms
// intervals until timeout elapses or ctx is cancelled. On success it writes
// "<pid>|<utc-iso>\n" into the lock file and returns a Lock; on timeout it
// returns ErrBusy.
func (m *Manager) Acquire(ctx context.Context, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := m.tryAcquire()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire: %w", err)
		}
		if ok {
			return &Lock{mgr: m}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// tryAcquire makes a single attempt to claim the lock file, clearing a
// stale holder first if one is found.
func (m *Manager) tryAcquire() (bool, error) {
	if holder, ok := m.readHolder(); ok && m.isStale(holder) {
		m.logger.Warn("lock: clearing stale holder",
			"path", m.path, "pid", holder.pid, "age", time.Since(holder.at))
		if err := m.clear(); err != nil {
			return false, err
		}
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	line := fmt.Sprintf("%d|%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(line); err != nil {
		return false, err
	}
	return true, nil
}

// Release truncates the lock file (rather than unlinking it, to avoid a
// create/delete race with a concurrent acquirer) and frees it for the next
// caller.
func (l *Lock) Release() error {
	if err := l.mgr.clear(); err != nil {
		return fmt.Errorf("lock: release: %w", err)
	}
	return nil
}

// clear truncates the lock file to zero length, creating it if absent.
func (m *Manager) clear() error {
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Status reports whether the lock is currently held, and by whom, for
// elefanteSystemStatusGet (spec.md §6.2). It never blocks and never mutates
// the lock file.
type Status struct {
	Held      bool
	HolderPID int
	Age       time.Duration
	Stale     bool
}

// Status inspects the lock file's current content without acquiring it.
func (m *Manager) Status() Status {
	holder, ok := m.readHolder()
	if !ok {
		return Status{}
	}
	return Status{Held: true, HolderPID: holder.pid, Age: time.Since(holder.at), Stale: m.isStale(holder)}
}

type holderInfo struct {
	pid int
	at  time.Time
}

// readHolder parses the "<pid>|<utc-iso>" content of the lock file, if any.
func (m *Manager) readHolder() (holderInfo, bool) {
	data, err := os.ReadFile(m.path)
	if err != nil || len(data) == 0 {
		return holderInfo{}, false
	}
	line := strings.TrimSpace(string(data))
	parts := strings.SplitN(line, "|", 2)
	if len(parts) != 2 {
		return holderInfo{}, false
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		return holderInfo{}, false
	}
	at, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return holderInfo{}, false
	}
	return holderInfo{pid: pid, at: at}, true
}

// isStale implements check_stale: a lock is stale if its holder PID is no
// longer alive on this host, or its timestamp is older than the configured
// stale threshold.
func (m *Manager) isStale(h holderInfo) bool {
	if time.Since(h.at) > m.staleThreshold {
		return true
	}
	return !processAlive(h.pid)
}

// processAlive reports whether pid identifies a live process on this host,
// using the signal-0 probe: sending signal 0 performs error checking
// without actually delivering a signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
