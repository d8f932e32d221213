package core

import (
	"context"
	"errors"
	"testing"

	"github.com/SimonWaldherr/rpcodbc/internal/dsn"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
)

// bareErrFacade wraps a Facade and forces one method to fail with a plain
// error instead of a *rpcclient.RemoteException, so tests can exercise
// ToRemoteErr's fallback-Kind branch.
type bareErrFacade struct {
	rpcclient.Facade
}

func (f *bareErrFacade) ConnectionInit(ctx context.Context, conn rpcclient.ConnectionHandle, db rpcclient.DatabaseHandle) error {
	return errors.New("connection reset by peer")
}

func TestConnectionConnectAndDisconnect(t *testing.T) {
	ctx := context.Background()
	facade := rpcclient.NewMemory()
	opts, err := dsn.Parse("SERVER=h;UID=u;PWD=p;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	conn := NewConnection()
	if conn.IsConnected() {
		t.Fatal("new connection should start Disconnected")
	}
	if err := conn.Connect(ctx, facade, opts); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !conn.IsConnected() {
		t.Fatal("expected Connected after successful Connect")
	}

	if err := conn.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if conn.IsConnected() {
		t.Fatal("expected Disconnected after Disconnect")
	}
}

func TestConnectionConnectFailurePropagates(t *testing.T) {
	ctx := context.Background()
	facade := rpcclient.NewMemory()
	opts, err := dsn.Parse("SERVER=h;UID=u;PWD=p;PRIV_KEY_FILE=x;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	conn := NewConnection()
	if err := conn.Connect(ctx, facade, opts); err == nil {
		t.Fatal("expected Connect to fail on bad PRIV_KEY_FILE")
	}
	if conn.IsConnected() {
		t.Fatal("connection must stay Disconnected on failure")
	}
}

func TestDisconnectWithoutConnect(t *testing.T) {
	conn := NewConnection()
	if err := conn.Disconnect(context.Background()); err == nil {
		t.Fatal("expected error disconnecting an already-disconnected connection")
	}
}

func TestConnectPlainTransportErrorUsesCallSiteKind(t *testing.T) {
	ctx := context.Background()
	facade := &bareErrFacade{Facade: rpcclient.NewMemory()}
	opts, err := dsn.Parse("SERVER=h;UID=u;PWD=p;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	conn := NewConnection()
	err = conn.Connect(ctx, facade, opts)
	if err == nil {
		t.Fatal("expected Connect to fail on plain transport error")
	}
	e, ok := err.(*errs.Error)
	if !ok {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	want := errs.New(errs.ConnectionInit, "x").SQLState().String()
	if got := e.SQLState().String(); got != want {
		t.Fatalf("got SQLSTATE %s, want %s (the ConnectionInit call site's Kind, not a hard-coded TransportCommunication)", got, want)
	}
}

func TestReleaseDatabaseBeforeConnectIsNoOp(t *testing.T) {
	conn := NewConnection()
	if err := conn.ReleaseDatabase(context.Background()); err != nil {
		t.Fatalf("ReleaseDatabase on a never-connected connection: %v", err)
	}
}

func TestReleaseDatabaseAfterConnect(t *testing.T) {
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
	if err := conn.ReleaseDatabase(ctx); err != nil {
		t.Fatalf("ReleaseDatabase: %v", err)
	}
}
