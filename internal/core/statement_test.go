package core

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/SimonWaldherr/rpcodbc/internal/columnar"
	"github.com/SimonWaldherr/rpcodbc/internal/dsn"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
)

type fixedSource struct {
	val *int64
}

func (f *fixedSource) Read() (columnar.ParamInput, error) {
	return columnar.ParamInput{CType: columnar.CSBigInt, Int64: *f.val}, nil
}

// recordingSource records every value it hands out, so a test can see
// when Read was called and what it returned.
type recordingSource struct {
	val  *int64
	read []int64
}

func (r *recordingSource) Read() (columnar.ParamInput, error) {
	r.read = append(r.read, *r.val)
	return columnar.ParamInput{CType: columnar.CSBigInt, Int64: *r.val}, nil
}

func connectedStatement(t *testing.T) (*Statement, *rpcclient.MemoryFacade) {
	t.Helper()
	ctx := context.Background()
	facade := rpcclient.NewMemory()
	opts, err := dsn.Parse("SERVER=h;UID=u;PWD=p;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	conn := NewConnection()
	if err := conn.Connect(ctx, facade, opts); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	stmt := NewStatement(conn)
	remote, err := facade.StatementNew(ctx, conn.conn)
	if err != nil {
		t.Fatalf("StatementNew: %v", err)
	}
	stmt.SetRemoteHandle(remote)
	return stmt, facade
}

func TestStatementHappyPathSingleRow(t *testing.T) {
	ctx := context.Background()
	stmt, facade := connectedStatement(t)

	if err := stmt.SetSQLQuery(ctx, "SELECT 1"); err != nil {
		t.Fatalf("SetSQLQuery: %v", err)
	}

	rec, err := columnar.BuildRecordBatch([]columnar.ParamInput{{Index: 1, CType: columnar.CLong, Int64: 1}})
	if err != nil {
		t.Fatalf("BuildRecordBatch: %v", err)
	}
	defer rec.Release()
	facade.Queries["SELECT 1"] = rpcclient.QueuedResult{Batches: []arrow.Record{rec}, RowsAffected: 1}

	if err := stmt.Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stmt.State() != Executed {
		t.Fatalf("expected Executed, got %v", stmt.State())
	}

	ok, err := stmt.Fetch(ctx)
	if err != nil || !ok {
		t.Fatalf("Fetch: ok=%v err=%v", ok, err)
	}
	if stmt.State() != Fetching {
		t.Fatalf("expected Fetching, got %v", stmt.State())
	}

	cell, err := stmt.GetData(1)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if cell.Int64 != 1 {
		t.Fatalf("got %d, want 1", cell.Int64)
	}

	ok, err = stmt.Fetch(ctx)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if ok {
		t.Fatal("expected NO_DATA on second fetch")
	}
	if stmt.State() != Done {
		t.Fatalf("expected Done, got %v", stmt.State())
	}
}

func TestStatementGetDataRequiresFetching(t *testing.T) {
	stmt, _ := connectedStatement(t)
	if _, err := stmt.GetData(1); err == nil {
		t.Fatal("expected error calling GetData before any fetch")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.DataNotFetched {
		t.Fatalf("expected DataNotFetched, got %v", err)
	}
}

func TestStatementFetchBeforeExecute(t *testing.T) {
	stmt, _ := connectedStatement(t)
	if _, err := stmt.Fetch(context.Background()); err == nil {
		t.Fatal("expected error fetching before execute")
	}
}

func TestStatementBindParameterRejectsZeroIndex(t *testing.T) {
	stmt, _ := connectedStatement(t)
	var v int64 = 5
	if err := stmt.BindParameter(0, &fixedSource{val: &v}); err == nil {
		t.Fatal("expected error binding index 0")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.InvalidParameterNumber {
		t.Fatalf("expected InvalidParameterNumber, got %v", err)
	}
}

func TestStatementExecuteRereadsBoundValueAtCallTime(t *testing.T) {
	ctx := context.Background()
	stmt, facade := connectedStatement(t)
	if err := stmt.SetSQLQuery(ctx, "SELECT ?"); err != nil {
		t.Fatalf("SetSQLQuery: %v", err)
	}

	v := int64(1)
	src := &recordingSource{val: &v}
	if err := stmt.BindParameter(1, src); err != nil {
		t.Fatalf("BindParameter: %v", err)
	}
	if len(src.read) != 0 {
		t.Fatalf("bound value was read at bind time: %v", src.read)
	}

	rec, err := columnar.BuildRecordBatch([]columnar.ParamInput{{Index: 1, CType: columnar.CLong, Int64: 99}})
	if err != nil {
		t.Fatalf("BuildRecordBatch: %v", err)
	}
	defer rec.Release()
	facade.Queries["SELECT ?"] = rpcclient.QueuedResult{Batches: []arrow.Record{rec}, RowsAffected: 1}

	v = 42 // mutate after bind, before execute
	if err := stmt.Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(src.read) != 1 || src.read[0] != 42 {
		t.Fatalf("got values read at execute %v, want [42]", src.read)
	}
	if stmt.RowCount() != 1 {
		t.Fatalf("got row count %d, want 1", stmt.RowCount())
	}
}

func TestNumResultColsBeforeFetchIsZero(t *testing.T) {
	stmt, _ := connectedStatement(t)
	if got := stmt.NumResultCols(); got != 0 {
		t.Fatalf("got %d, want 0 before any fetch", got)
	}
}
