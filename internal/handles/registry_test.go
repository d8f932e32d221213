package handles

import (
	"context"
	"testing"

	"github.com/SimonWaldherr/rpcodbc/internal/dsn"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
)

func TestAllocEnvConnStmtLifecycle(t *testing.T) {
	ctx := context.Background()
	r := New(0)

	envID, _ := r.AllocEnv()
	connID, conn, err := r.AllocConn(envID)
	if err != nil {
		t.Fatalf("AllocConn: %v", err)
	}

	facade := rpcclient.NewMemory()
	opts, _ := dsn.Parse("SERVER=h;UID=u;PWD=p;")
	if err := conn.Connect(ctx, facade, opts); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	stmtID, _, err := r.AllocStmt(ctx, connID)
	if err != nil {
		t.Fatalf("AllocStmt: %v", err)
	}
	if _, ok := r.Stmt(stmtID); !ok {
		t.Fatal("expected statement to be registered")
	}

	if err := r.FreeStmt(stmtID); err != nil {
		t.Fatalf("FreeStmt: %v", err)
	}
	if err := r.FreeConn(connID); err != nil {
		t.Fatalf("FreeConn: %v", err)
	}
	if err := r.FreeEnv(envID); err != nil {
		t.Fatalf("FreeEnv: %v", err)
	}
}

func TestAllocStmtRequiresConnectedConnection(t *testing.T) {
	r := New(0)
	envID, _ := r.AllocEnv()
	connID, _, err := r.AllocConn(envID)
	if err != nil {
		t.Fatalf("AllocConn: %v", err)
	}

	if _, _, err := r.AllocStmt(context.Background(), connID); err == nil {
		t.Fatal("expected error allocating statement on disconnected connection")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.Disconnected {
		t.Fatalf("expected Disconnected, got %v", err)
	}
}

func TestAllocConnRequiresExistingEnv(t *testing.T) {
	r := New(0)
	if _, _, err := r.AllocConn(999); err == nil {
		t.Fatal("expected error allocating connection under unknown env")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.InvalidHandle {
		t.Fatalf("expected InvalidHandle, got %v", err)
	}
}

func TestFreeUnknownHandles(t *testing.T) {
	r := New(0)
	if err := r.FreeEnv(1); err == nil {
		t.Fatal("expected error freeing unknown env")
	}
	if err := r.FreeConn(1); err == nil {
		t.Fatal("expected error freeing unknown conn")
	}
	if err := r.FreeStmt(1); err == nil {
		t.Fatal("expected error freeing unknown stmt")
	}
}
