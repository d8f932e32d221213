package rpcclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"

	"github.com/SimonWaldherr/rpcodbc/internal/columnar"
)

// MemoryFacade is an in-process Facade implementation with no network
// I/O, used by tests and by embedders that want to drive the core
// against a fixture instead of a real remote service. It never crosses
// a real FFI/address-space boundary; its result-stream bytes are an
// Arrow IPC stream encoded from the matching QueuedResult, not a machine
// pointer.
type MemoryFacade struct {
	mu    sync.Mutex
	dbs   map[DatabaseHandle]*memDB
	conns map[ConnectionHandle]*memConn
	stmts map[StatementHandle]*memStmt

	// Queries maps SQL text to a canned ExecuteResult, keyed by the text
	// set via StatementSetSQLQuery. Tests populate this before exercising
	// the core.
	Queries map[string]QueuedResult
}

// QueuedResult is a canned outcome for one SQL text. Batches, when
// present, are serialized to the Arrow IPC stream format on execute,
// the same wire shape the gRPC facade produces, so internal/core
// decodes both facades' results identically.
type QueuedResult struct {
	Batches      []arrow.Record
	RowsAffected int64
	Err          *RemoteException
}

type memDB struct{ options map[string]OptionValue }
type memConn struct {
	db      DatabaseHandle
	options map[string]OptionValue
	init    bool
}
type memStmt struct {
	conn ConnectionHandle
	sql  string
}

// NewMemory constructs an empty MemoryFacade.
func NewMemory() *MemoryFacade {
	return &MemoryFacade{
		dbs:     make(map[DatabaseHandle]*memDB),
		conns:   make(map[ConnectionHandle]*memConn),
		stmts:   make(map[StatementHandle]*memStmt),
		Queries: make(map[string]QueuedResult),
	}
}

func newToken(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func (m *MemoryFacade) DatabaseNew(ctx context.Context) (DatabaseHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := DatabaseHandle(newToken("db"))
	m.dbs[h] = &memDB{options: map[string]OptionValue{}}
	return h, nil
}

func (m *MemoryFacade) DatabaseSetOption(ctx context.Context, db DatabaseHandle, key string, v OptionValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dbs[db]
	if !ok {
		return &RemoteException{Message: "unknown database handle"}
	}
	d.options[key] = v
	return nil
}

func (m *MemoryFacade) DatabaseInit(ctx context.Context, db DatabaseHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dbs[db]; !ok {
		return &RemoteException{Message: "unknown database handle"}
	}
	return nil
}

func (m *MemoryFacade) DatabaseRelease(ctx context.Context, db DatabaseHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dbs, db)
	return nil
}

func (m *MemoryFacade) ConnectionNew(ctx context.Context) (ConnectionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := ConnectionHandle(newToken("conn"))
	m.conns[h] = &memConn{options: map[string]OptionValue{}}
	return h, nil
}

func (m *MemoryFacade) ConnectionSetOption(ctx context.Context, conn ConnectionHandle, key string, v OptionValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[conn]
	if !ok {
		return &RemoteException{Message: "unknown connection handle"}
	}
	if key == "PRIV_KEY_FILE" && v.Str == "x" {
		return &RemoteException{Message: "invalid private key file", ParamName: key, ParamValue: v.Str, Explanation: "file not found", Kind: 4}
	}
	c.options[key] = v
	return nil
}

func (m *MemoryFacade) ConnectionInit(ctx context.Context, conn ConnectionHandle, db DatabaseHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[conn]
	if !ok {
		return &RemoteException{Message: "unknown connection handle"}
	}
	if _, ok := m.dbs[db]; !ok {
		return &RemoteException{Message: "unknown database handle"}
	}
	c.db = db
	c.init = true
	return nil
}

func (m *MemoryFacade) ConnectionRelease(ctx context.Context, conn ConnectionHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, conn)
	return nil
}

func (m *MemoryFacade) StatementNew(ctx context.Context, conn ConnectionHandle) (StatementHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[conn]
	if !ok || !c.init {
		return "", &RemoteException{Message: "connection not initialized"}
	}
	h := StatementHandle(newToken("stmt"))
	m.stmts[h] = &memStmt{conn: conn}
	return h, nil
}

func (m *MemoryFacade) StatementSetSQLQuery(ctx context.Context, stmt StatementHandle, sql string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stmts[stmt]
	if !ok {
		return &RemoteException{Message: "unknown statement handle"}
	}
	s.sql = sql
	return nil
}

func (m *MemoryFacade) StatementPrepare(ctx context.Context, stmt StatementHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stmts[stmt]; !ok {
		return &RemoteException{Message: "unknown statement handle"}
	}
	return nil
}

func (m *MemoryFacade) StatementBind(ctx context.Context, stmt StatementHandle, schemaPtrBytes, arrayPtrBytes []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stmts[stmt]; !ok {
		return &RemoteException{Message: "unknown statement handle"}
	}
	return nil
}

func (m *MemoryFacade) StatementExecuteQuery(ctx context.Context, stmt StatementHandle) (ExecuteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stmts[stmt]
	if !ok {
		return ExecuteResult{}, &RemoteException{Message: "unknown statement handle"}
	}
	q, ok := m.Queries[s.sql]
	if !ok {
		return ExecuteResult{}, nil
	}
	if q.Err != nil {
		return ExecuteResult{}, q.Err
	}
	wire, err := columnar.EncodeIPCStream(q.Batches)
	if err != nil {
		return ExecuteResult{}, &RemoteException{Message: err.Error()}
	}
	return ExecuteResult{StreamPtrBytes: wire, RowsAffected: q.RowsAffected}, nil
}

func (m *MemoryFacade) StatementRelease(ctx context.Context, stmt StatementHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stmts, stmt)
	return nil
}
