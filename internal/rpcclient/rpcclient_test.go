package rpcclient

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/SimonWaldherr/rpcodbc/internal/columnar"
)

func TestMemoryFacadeHappyPath(t *testing.T) {
	ctx := context.Background()
	f := NewMemory()

	db, err := f.DatabaseNew(ctx)
	if err != nil {
		t.Fatalf("DatabaseNew: %v", err)
	}
	if err := f.DatabaseInit(ctx, db); err != nil {
		t.Fatalf("DatabaseInit: %v", err)
	}

	conn, err := f.ConnectionNew(ctx)
	if err != nil {
		t.Fatalf("ConnectionNew: %v", err)
	}
	if err := f.ConnectionInit(ctx, conn, db); err != nil {
		t.Fatalf("ConnectionInit: %v", err)
	}

	stmt, err := f.StatementNew(ctx, conn)
	if err != nil {
		t.Fatalf("StatementNew: %v", err)
	}
	if err := f.StatementSetSQLQuery(ctx, stmt, "SELECT 1"); err != nil {
		t.Fatalf("StatementSetSQLQuery: %v", err)
	}

	rec, err := columnar.BuildRecordBatch([]columnar.ParamInput{{Index: 1, CType: columnar.CLong, Int64: 1}})
	if err != nil {
		t.Fatalf("BuildRecordBatch: %v", err)
	}
	defer rec.Release()

	f.Queries["SELECT 1"] = QueuedResult{Batches: []arrow.Record{rec}, RowsAffected: 1}
	res, err := f.StatementExecuteQuery(ctx, stmt)
	if err != nil {
		t.Fatalf("StatementExecuteQuery: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("got %d rows affected, want 1", res.RowsAffected)
	}
	if len(res.StreamPtrBytes) == 0 {
		t.Error("expected non-empty encoded stream")
	}
}

func TestMemoryFacadeStatementBeforeConnected(t *testing.T) {
	ctx := context.Background()
	f := NewMemory()
	conn, _ := f.ConnectionNew(ctx)
	if _, err := f.StatementNew(ctx, conn); err == nil {
		t.Fatal("expected error allocating statement on disconnected connection")
	}
}

func TestMemoryFacadeAuthFailureMapping(t *testing.T) {
	ctx := context.Background()
	f := NewMemory()
	conn, _ := f.ConnectionNew(ctx)
	err := f.ConnectionSetOption(ctx, conn, "PRIV_KEY_FILE", StringOption("x"))
	if err == nil {
		t.Fatal("expected error for bad key file")
	}
	re, ok := err.(*RemoteException)
	if !ok {
		t.Fatalf("expected *RemoteException, got %T", err)
	}
	if re.ParamName != "PRIV_KEY_FILE" {
		t.Errorf("got param name %q", re.ParamName)
	}
}
