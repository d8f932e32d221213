package rpcclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

// jsonCodec swaps gRPC's default protobuf wire codec for plain JSON.
// Mirrors the teacher's own gRPC server (cmd/server/main.go), which
// registers the same trick to avoid depending on generated .pb.go stubs
// for a hand-rolled RPC surface.
type jsonCodec struct{}

func (jsonCodec) Name() string                          { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)          { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error     { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCConfig configures the default remote transport.
type GRPCConfig struct {
	Address     string
	Insecure    bool
	CallTimeout time.Duration
}

type grpcFacade struct {
	cc      *grpc.ClientConn
	timeout time.Duration
}

// NewGRPC dials addr and returns a Facade backed by a real
// google.golang.org/grpc ClientConn using the JSON codec above for every
// call. The wire message shapes are plain Go structs; the protobuf
// definitions a real deployment would generate are, per §6.2, outside
// the core's contract.
func NewGRPC(cfg GRPCConfig) (Facade, func() error, error) {
	var opts []grpc.DialOption
	if cfg.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(nil)))
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})))

	cc, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, nil, err
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &grpcFacade{cc: cc, timeout: timeout}
	return f, cc.Close, nil
}

// call issues one JSON-over-gRPC request, stamping it with a fresh
// x-request-id so the remote's logs can be correlated back to this
// specific call.
func (f *grpcFacade) call(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", uuid.NewString())
	err := f.cc.Invoke(ctx, method, req, resp)
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &RemoteException{Message: err.Error(), Kind: errs.RemoteGeneric}
	}
	return decodeStatus(st)
}

func decodeStatus(st *status.Status) *RemoteException {
	re := &RemoteException{Message: st.Message(), StatusCode: int32(st.Code())}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		re.Kind = errs.RemoteAuth
	case codes.InvalidArgument:
		re.Kind = errs.RemoteInvalidParam
	case codes.Internal:
		re.Kind = errs.RemoteInternal
	default:
		re.Kind = errs.RemoteGeneric
	}
	return re
}

type dbNewReq struct{}
type dbNewResp struct{ Handle DatabaseHandle }
type setOptReq struct {
	Handle string
	Key    string
	Value  OptionValue
}
type handleReq struct{ Handle string }
type connNewResp struct{ Handle ConnectionHandle }
type connInitReq struct {
	Conn ConnectionHandle
	DB   DatabaseHandle
}
type stmtNewReq struct{ Conn ConnectionHandle }
type stmtNewResp struct{ Handle StatementHandle }
type setSQLReq struct {
	Stmt StatementHandle
	SQL  string
}
type bindReq struct {
	Stmt       StatementHandle
	SchemaPtr  []byte
	ArrayPtr   []byte
}
type execResp struct {
	StreamPtr    []byte
	RowsAffected int64
}

func (f *grpcFacade) DatabaseNew(ctx context.Context) (DatabaseHandle, error) {
	var resp dbNewResp
	if err := f.call(ctx, "/driver.v1/DatabaseNew", &dbNewReq{}, &resp); err != nil {
		return "", err
	}
	return resp.Handle, nil
}

func (f *grpcFacade) DatabaseSetOption(ctx context.Context, db DatabaseHandle, key string, v OptionValue) error {
	return f.call(ctx, "/driver.v1/DatabaseSetOption", &setOptReq{Handle: string(db), Key: key, Value: v}, &struct{}{})
}

func (f *grpcFacade) DatabaseInit(ctx context.Context, db DatabaseHandle) error {
	return f.call(ctx, "/driver.v1/DatabaseInit", &handleReq{Handle: string(db)}, &struct{}{})
}

func (f *grpcFacade) DatabaseRelease(ctx context.Context, db DatabaseHandle) error {
	return f.call(ctx, "/driver.v1/DatabaseRelease", &handleReq{Handle: string(db)}, &struct{}{})
}

func (f *grpcFacade) ConnectionNew(ctx context.Context) (ConnectionHandle, error) {
	var resp connNewResp
	if err := f.call(ctx, "/driver.v1/ConnectionNew", &struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Handle, nil
}

func (f *grpcFacade) ConnectionSetOption(ctx context.Context, conn ConnectionHandle, key string, v OptionValue) error {
	return f.call(ctx, "/driver.v1/ConnectionSetOption", &setOptReq{Handle: string(conn), Key: key, Value: v}, &struct{}{})
}

func (f *grpcFacade) ConnectionInit(ctx context.Context, conn ConnectionHandle, db DatabaseHandle) error {
	return f.call(ctx, "/driver.v1/ConnectionInit", &connInitReq{Conn: conn, DB: db}, &struct{}{})
}

func (f *grpcFacade) ConnectionRelease(ctx context.Context, conn ConnectionHandle) error {
	return f.call(ctx, "/driver.v1/ConnectionRelease", &handleReq{Handle: string(conn)}, &struct{}{})
}

func (f *grpcFacade) StatementNew(ctx context.Context, conn ConnectionHandle) (StatementHandle, error) {
	var resp stmtNewResp
	if err := f.call(ctx, "/driver.v1/StatementNew", &stmtNewReq{Conn: conn}, &resp); err != nil {
		return "", err
	}
	return resp.Handle, nil
}

func (f *grpcFacade) StatementSetSQLQuery(ctx context.Context, stmt StatementHandle, sql string) error {
	return f.call(ctx, "/driver.v1/StatementSetSQLQuery", &setSQLReq{Stmt: stmt, SQL: sql}, &struct{}{})
}

func (f *grpcFacade) StatementPrepare(ctx context.Context, stmt StatementHandle) error {
	return f.call(ctx, "/driver.v1/StatementPrepare", &handleReq{Handle: string(stmt)}, &struct{}{})
}

func (f *grpcFacade) StatementBind(ctx context.Context, stmt StatementHandle, schemaPtrBytes, arrayPtrBytes []byte) error {
	return f.call(ctx, "/driver.v1/StatementBind", &bindReq{Stmt: stmt, SchemaPtr: schemaPtrBytes, ArrayPtr: arrayPtrBytes}, &struct{}{})
}

func (f *grpcFacade) StatementExecuteQuery(ctx context.Context, stmt StatementHandle) (ExecuteResult, error) {
	var resp execResp
	if err := f.call(ctx, "/driver.v1/StatementExecuteQuery", &handleReq{Handle: string(stmt)}, &resp); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{StreamPtrBytes: resp.StreamPtr, RowsAffected: resp.RowsAffected}, nil
}

func (f *grpcFacade) StatementRelease(ctx context.Context, stmt StatementHandle) error {
	return f.call(ctx, "/driver.v1/StatementRelease", &handleReq{Handle: string(stmt)}, &struct{}{})
}
