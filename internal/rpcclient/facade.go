// Package rpcclient implements the thin typed facade of §4.H that the
// core consumes instead of talking to the remote database-driver service
// directly. Facade is the interface internal/core programs against;
// NewGRPC backs it with a real google.golang.org/grpc transport (using
// the teacher's own JSON-codec-over-gRPC idiom instead of generated
// protobuf stubs, since the wire format itself is out of scope per
// §6.2), and NewMemory backs it with an in-process implementation used
// by tests and by the odbc package as its fallback when NewGRPC fails.
package rpcclient

import (
	"context"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

// OptionValue is a closed sum of the value kinds §4.H's
// *_set_option_{string|int|double|bytes} setters accept.
type OptionValue struct {
	Kind  OptionKind
	Str   string
	Int   int64
	Float float64
	Bytes []byte
}

type OptionKind int

const (
	OptString OptionKind = iota
	OptInt
	OptFloat
	OptBytes
)

func StringOption(v string) OptionValue  { return OptionValue{Kind: OptString, Str: v} }
func IntOption(v int64) OptionValue      { return OptionValue{Kind: OptInt, Int: v} }
func FloatOption(v float64) OptionValue  { return OptionValue{Kind: OptFloat, Float: v} }
func BytesOption(v []byte) OptionValue   { return OptionValue{Kind: OptBytes, Bytes: v} }

// DatabaseHandle and friends are remote-side handle tokens; the core
// never interprets their contents.
type DatabaseHandle string
type ConnectionHandle string
type StatementHandle string

// ExecuteResult is what statement_execute_query returns.
type ExecuteResult struct {
	StreamPtrBytes []byte
	RowsAffected   int64
}

// RemoteException is the decoded shape of §4.H's typed remote exception.
type RemoteException struct {
	Message     string
	StatusCode  int32
	Kind        errs.RemoteErrorKind
	ParamName   string
	ParamValue  string
	Explanation string
	NativeCode  int32
	Report      string
}

func (e *RemoteException) Error() string { return e.Message }

// ToError converts a RemoteException into the core's tagged error type.
func (e *RemoteException) ToError() *errs.Error {
	return errs.NewRemote(e.Kind, e.ParamName, e.Message, e.NativeCode)
}

// Facade is the typed surface of §4.H. Every method either succeeds or
// returns a *RemoteException (use errors.As to recover it).
type Facade interface {
	DatabaseNew(ctx context.Context) (DatabaseHandle, error)
	DatabaseSetOption(ctx context.Context, db DatabaseHandle, key string, v OptionValue) error
	DatabaseInit(ctx context.Context, db DatabaseHandle) error
	DatabaseRelease(ctx context.Context, db DatabaseHandle) error

	ConnectionNew(ctx context.Context) (ConnectionHandle, error)
	ConnectionSetOption(ctx context.Context, conn ConnectionHandle, key string, v OptionValue) error
	ConnectionInit(ctx context.Context, conn ConnectionHandle, db DatabaseHandle) error
	ConnectionRelease(ctx context.Context, conn ConnectionHandle) error

	StatementNew(ctx context.Context, conn ConnectionHandle) (StatementHandle, error)
	StatementSetSQLQuery(ctx context.Context, stmt StatementHandle, sql string) error
	StatementPrepare(ctx context.Context, stmt StatementHandle) error
	StatementBind(ctx context.Context, stmt StatementHandle, schemaPtrBytes, arrayPtrBytes []byte) error
	StatementExecuteQuery(ctx context.Context, stmt StatementHandle) (ExecuteResult, error)
	StatementRelease(ctx context.Context, stmt StatementHandle) error
}
