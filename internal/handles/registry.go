// Package handles implements the handle registry of §4.E: the opaque
// uintptr SQLHANDLEs returned across the C ABI boundary, and the
// parent/child validation rules that govern SQLAllocHandle. Handles live
// in one map per handle type, guarded by a sync.RWMutex, with an
// incrementing uintptr counter per type.
package handles

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SimonWaldherr/rpcodbc/internal/core"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

// HandleType mirrors the ODBC SQL_HANDLE_* discriminant used by
// SQLAllocHandle.
type HandleType int

const (
	TypeEnv HandleType = iota
	TypeDbc
	TypeStmt
	TypeDesc
)

// Registry owns every live environment, connection and statement handle
// issued to a caller, indexed by the uintptr value handed back across
// the C ABI.
type Registry struct {
	mu       sync.RWMutex
	envs     map[uintptr]*core.Environment
	conns    map[uintptr]*core.Connection
	stmts    map[uintptr]*core.Statement
	envNext  uintptr
	connNext uintptr
	stmtNext uintptr

	janitor     *cron.Cron
	staleAfter  time.Duration
}

// New constructs an empty registry. staleAfter configures the janitor's
// sweep threshold for diagnostic-queue trimming; zero disables the
// sweep entirely.
func New(staleAfter time.Duration) *Registry {
	return &Registry{
		envs:       make(map[uintptr]*core.Environment),
		conns:      make(map[uintptr]*core.Connection),
		stmts:      make(map[uintptr]*core.Statement),
		envNext:    1,
		connNext:   1,
		stmtNext:   1,
		staleAfter: staleAfter,
	}
}

// AllocEnv allocates a new environment handle. Per §4.E an environment
// has no parent; SQLAllocHandle rejects a non-null input handle before
// calling this.
func (r *Registry) AllocEnv() (uintptr, *core.Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.envNext
	r.envNext++
	env := core.NewEnvironment()
	r.envs[id] = env
	return id, env
}

// AllocConn allocates a connection under an existing environment handle.
func (r *Registry) AllocConn(envHandle uintptr) (uintptr, *core.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envs[envHandle]; !ok {
		return 0, nil, errs.New(errs.InvalidHandle, "no environment with handle %d", envHandle)
	}
	id := r.connNext
	r.connNext++
	conn := core.NewConnection()
	r.conns[id] = conn
	return id, conn, nil
}

// AllocStmt allocates a statement under an existing, connected
// connection handle. Per §4.E the parent connection must already be in
// the Connected state; this also allocates the remote statement via
// statement_new and stores the returned remote handle before the local
// handle is published.
func (r *Registry) AllocStmt(ctx context.Context, connHandle uintptr) (uintptr, *core.Statement, error) {
	r.mu.Lock()
	conn, ok := r.conns[connHandle]
	if !ok {
		r.mu.Unlock()
		return 0, nil, errs.New(errs.InvalidHandle, "no connection with handle %d", connHandle)
	}
	if !conn.IsConnected() {
		r.mu.Unlock()
		return 0, nil, errs.New(errs.Disconnected, "connection %d is not connected", connHandle)
	}
	r.mu.Unlock()

	stmt := core.NewStatement(conn)
	remote, err := conn.Facade().StatementNew(ctx, conn.RemoteHandle())
	if err != nil {
		return 0, nil, core.ToRemoteErr(err, errs.ExecuteStatement)
	}
	stmt.SetRemoteHandle(remote)

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.stmtNext
	r.stmtNext++
	r.stmts[id] = stmt
	return id, stmt, nil
}

// Env looks up a live environment handle.
func (r *Registry) Env(h uintptr) (*core.Environment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.envs[h]
	return e, ok
}

// Conn looks up a live connection handle.
func (r *Registry) Conn(h uintptr) (*core.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[h]
	return c, ok
}

// Stmt looks up a live statement handle.
func (r *Registry) Stmt(h uintptr) (*core.Statement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stmts[h]
	return s, ok
}

// FreeEnv releases an environment handle. Per §9/§4.I it carries no
// remote call.
func (r *Registry) FreeEnv(h uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envs[h]; !ok {
		return errs.New(errs.InvalidHandle, "no environment with handle %d", h)
	}
	delete(r.envs, h)
	return nil
}

// FreeConn releases a connection handle.
func (r *Registry) FreeConn(h uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[h]; !ok {
		return errs.New(errs.InvalidHandle, "no connection with handle %d", h)
	}
	delete(r.conns, h)
	return nil
}

// FreeStmt releases a statement handle. The caller must first have
// issued the remote statement_release call; this only drops the local
// registry entry.
func (r *Registry) FreeStmt(h uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stmts[h]; !ok {
		return errs.New(errs.InvalidHandle, "no statement with handle %d", h)
	}
	delete(r.stmts, h)
	return nil
}

// StartJanitor launches a background cron.Cron that sweeps every live
// statement's diagnostic queue, trimming records older than staleAfter.
// Mirrors the teacher's own use of robfig/cron for periodic background
// work, repurposed here for handle hygiene instead of query scheduling.
// Call Stop on the returned *cron.Cron to halt it.
func (r *Registry) StartJanitor() *cron.Cron {
	c := cron.New(cron.WithSeconds())
	if r.staleAfter <= 0 {
		r.janitor = c
		return c
	}
	_, _ = c.AddFunc("*/30 * * * * *", r.sweep)
	c.Start()
	r.janitor = c
	return c
}

// StopJanitor halts the background sweep started by StartJanitor, if
// any.
func (r *Registry) StopJanitor() {
	if r.janitor != nil {
		r.janitor.Stop()
	}
}

func (r *Registry) sweep() {
	r.mu.RLock()
	stmts := make([]*core.Statement, 0, len(r.stmts))
	for _, s := range r.stmts {
		stmts = append(stmts, s)
	}
	r.mu.RUnlock()

	cutoff := time.Now().Add(-r.staleAfter)
	for _, s := range stmts {
		s.Diagnostics().TrimBefore(cutoff)
	}
}
