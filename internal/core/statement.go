package core

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/SimonWaldherr/rpcodbc/internal/columnar"
	"github.com/SimonWaldherr/rpcodbc/internal/diag"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
)

// State is the statement lifecycle of §4.G.
type State int

const (
	Created State = iota
	Executed
	Fetching
	Done
)

// ValueSource re-reads a bound parameter's current value at the moment
// it is asked, not when SQLBindParameter was called. The odbc package's
// cgo layer implements this by dereferencing the caller's C pointers on
// demand; internal/core never stores a copy.
type ValueSource interface {
	Read() (columnar.ParamInput, error)
}

// Statement is bound to a parent connection and cannot outlive it.
type Statement struct {
	conn   *Connection
	remote rpcclient.StatementHandle
	state  State
	sql    string

	bindings map[int]ValueSource

	rowsAffected int64
	source       columnar.BatchSource
	batch        arrow.Record
	cursor       int
	schema       *arrow.Schema

	diag diag.Queue
}

// NewStatement allocates a statement bound to conn. Per §4.E this must
// only be called once the registry has verified conn is Connected; the
// caller is also responsible for the remote statement_new call that
// populates remote (via SetRemoteHandle).
func NewStatement(conn *Connection) *Statement {
	return &Statement{conn: conn, state: Created, bindings: make(map[int]ValueSource)}
}

// SetRemoteHandle records the remote statement handle returned by
// statement_new.
func (s *Statement) SetRemoteHandle(h rpcclient.StatementHandle) { s.remote = h }

// Diagnostics returns the statement's diagnostic queue.
func (s *Statement) Diagnostics() *diag.Queue { return &s.diag }

// State returns the current lifecycle state.
func (s *Statement) State() State { return s.state }

// SetSQLQuery sends the SQL text to the remote side via
// statement_set_sql_query. Valid from any state; does not itself change
// state (per the diagram, Created -> set_sql_query -> Created).
func (s *Statement) SetSQLQuery(ctx context.Context, sql string) error {
	if err := s.conn.Facade().StatementSetSQLQuery(ctx, s.remote, sql); err != nil {
		return ToRemoteErr(err, errs.SetSQLQuery)
	}
	s.sql = sql
	return nil
}

// Prepare calls statement_prepare.
func (s *Statement) Prepare(ctx context.Context) error {
	if err := s.conn.Facade().StatementPrepare(ctx, s.remote); err != nil {
		return ToRemoteErr(err, errs.PrepareStatement)
	}
	return nil
}

// BindParameter stores src for parameter index idx (1-based), per
// §4.G/§4.D: stored, not copied. Rebinding the same index replaces the
// source.
func (s *Statement) BindParameter(idx int, src ValueSource) error {
	if idx < 1 {
		return errs.New(errs.InvalidParameterNumber, "parameter index must be >= 1, got %d", idx)
	}
	s.bindings[idx] = src
	return nil
}

// Execute runs statement_bind (if any parameters are bound, reading
// each one's current value now) followed by statement_execute_query.
// Any previous stream is dropped; the statement returns to Executed
// regardless of its prior state.
func (s *Statement) Execute(ctx context.Context) error {
	if err := s.bindIfNeeded(ctx); err != nil {
		return err
	}

	res, err := s.conn.Facade().StatementExecuteQuery(ctx, s.remote)
	if err != nil {
		return ToRemoteErr(err, errs.ExecuteStatement)
	}

	s.releaseBatch()
	s.rowsAffected = res.RowsAffected
	s.source = nil
	s.schema = nil
	s.cursor = 0

	if len(res.StreamPtrBytes) > 0 {
		src, err := columnar.OpenIPCStream(bytes.NewReader(res.StreamPtrBytes))
		if err != nil {
			return errs.Wrap(errs.FetchData, err, "decoding result stream")
		}
		s.source = src
	}
	s.state = Executed
	return nil
}

func (s *Statement) bindIfNeeded(ctx context.Context) error {
	if len(s.bindings) == 0 {
		return nil
	}
	indices := make([]int, 0, len(s.bindings))
	for idx := range s.bindings {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	params := make([]columnar.ParamInput, 0, len(indices))
	for _, idx := range indices {
		p, err := s.bindings[idx].Read()
		if err != nil {
			return errs.Wrap(errs.BindParameters, err, "reading bound parameter %d", idx)
		}
		p.Index = idx
		params = append(params, p)
	}

	rec, err := columnar.BuildRecordBatch(params)
	if err != nil {
		return err
	}
	defer rec.Release()

	// The core has no real FFI schema/array pointers to hand off (those
	// only exist once a cgo caller has built C Arrow structures); it
	// carries the same self-describing Arrow IPC envelope in both
	// slots, which the facade's wire format can decode either way.
	wire, err := columnar.EncodeIPCStream([]arrow.Record{rec})
	if err != nil {
		return errs.Wrap(errs.BindParameters, err, "encoding bound parameters")
	}
	if err := s.conn.Facade().StatementBind(ctx, s.remote, wire, wire); err != nil {
		return ToRemoteErr(err, errs.BindParameters)
	}
	return nil
}

// Fetch advances the row cursor by one row, per §4.G. ok reports
// whether a row is now current; ok=false with err=nil means NO_DATA.
func (s *Statement) Fetch(ctx context.Context) (ok bool, err error) {
	switch s.state {
	case Created:
		return false, errs.New(errs.StatementNotExecuted, "fetch called before execute")
	case Done:
		return false, nil
	case Executed:
		return s.pullNextBatch()
	case Fetching:
		if s.cursor < int(s.batch.NumRows())-1 {
			s.cursor++
			return true, nil
		}
		return s.pullNextBatch()
	default:
		return false, errs.New(errs.StatementNotExecuted, "unknown statement state")
	}
}

func (s *Statement) pullNextBatch() (bool, error) {
	if s.source == nil {
		s.state = Done
		return false, nil
	}
	rec, err := s.source.Next()
	if err == io.EOF {
		s.state = Done
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.FetchData, err, "reading next batch")
	}
	s.releaseBatch()
	s.batch = rec
	s.cursor = 0
	if s.schema == nil {
		s.schema = rec.Schema()
	}
	s.state = Fetching
	return true, nil
}

// GetData reads column col (1-based) of the current row, per §4.D's
// read path. Requires Fetching.
func (s *Statement) GetData(col int) (columnar.FetchedCell, error) {
	if s.state != Fetching {
		return columnar.FetchedCell{}, errs.New(errs.DataNotFetched, "get_data requires an active fetch")
	}
	return columnar.ReadCell(s.batch, s.cursor, col)
}

// RowCount returns the remote-reported affected-row count while in
// Executed, per §4.G; 0 otherwise.
func (s *Statement) RowCount() int64 {
	if s.state == Executed {
		return s.rowsAffected
	}
	return 0
}

// NumResultCols reads the column count from the cached schema, per the
// §9 decision; 0 before any batch has been observed.
func (s *Statement) NumResultCols() int {
	if s.schema == nil {
		return 0
	}
	return len(s.schema.Fields())
}

func (s *Statement) releaseBatch() {
	if s.batch != nil {
		s.batch.Release()
		s.batch = nil
	}
}

// Release calls statement_release through the facade. The caller still
// owns dropping the statement from the handle registry.
func (s *Statement) Release(ctx context.Context) error {
	s.releaseBatch()
	if err := s.conn.Facade().StatementRelease(ctx, s.remote); err != nil {
		return ToRemoteErr(err, errs.ExecuteStatement)
	}
	return nil
}
