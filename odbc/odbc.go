// Package main exposes the rpcodbc driver through C-compatible ODBC API
// functions: standard ODBC clients link against this as a shared
// library and talk to a remote database-driver service over gRPC
// through internal/rpcclient, rather than to a local engine.
//
// Build as a shared library:
//
//	go build -buildmode=c-shared -o librpcodbc.so .
//
// Register the driver with your ODBC manager (unixODBC example):
//
//	[rpcodbc]
//	Description = RPC ODBC Driver
//	Driver = /path/to/librpcodbc.so
//	Setup = /path/to/librpcodbc.so
package main

/*
#include <stdlib.h>
#include <string.h>

typedef void* SQLHENV;
typedef void* SQLHDBC;
typedef void* SQLHSTMT;
typedef void* SQLHANDLE;
typedef short SQLSMALLINT;
typedef unsigned short SQLUSMALLINT;
typedef int SQLINTEGER;
typedef unsigned char SQLUCHAR;
typedef long SQLLEN;
typedef unsigned long SQLULEN;
typedef void* SQLPOINTER;
typedef SQLSMALLINT SQLRETURN;

#define SQL_SUCCESS 0
#define SQL_SUCCESS_WITH_INFO 1
#define SQL_ERROR -1
#define SQL_INVALID_HANDLE -2
#define SQL_NO_DATA 100

#define SQL_HANDLE_ENV 1
#define SQL_HANDLE_DBC 2
#define SQL_HANDLE_STMT 3
#define SQL_HANDLE_DESC 4

#define SQL_ATTR_ODBC_VERSION 200
#define SQL_ATTR_CONNECTION_POOLING 201
#define SQL_ATTR_CP_MATCH 202
#define SQL_ATTR_OUTPUT_NTS 10001
#define SQL_OV_ODBC3 3

#define SQL_NULL_DATA -1
#define SQL_NTS -3

#define SQL_DRIVER_NOPROMPT 0
#define SQL_DRIVER_COMPLETE 1
#define SQL_DRIVER_PROMPT 2
#define SQL_DRIVER_COMPLETE_REQUIRED 3

#define SQL_PARAM_INPUT 1

#define SQL_C_CHAR 1
#define SQL_C_LONG 4
#define SQL_C_WCHAR -8
#define SQL_C_SBIGINT -25

#define SQL_DIAG_RETURNCODE 1
#define SQL_DIAG_NUMBER 2
#define SQL_DIAG_ROW_COUNT 3
#define SQL_DIAG_SQLSTATE 4
#define SQL_DIAG_NATIVE 5
#define SQL_DIAG_MESSAGE_TEXT 6
#define SQL_DIAG_DYNAMIC_FUNCTION 7
#define SQL_DIAG_CLASS_ORIGIN 8
#define SQL_DIAG_CONNECTION_NAME 10
#define SQL_DIAG_SERVER_NAME 11
#define SQL_DIAG_CURSOR_ROW_COUNT -1249
#define SQL_DIAG_ROW_NUMBER -1247
#define SQL_DIAG_COLUMN_NUMBER -1248
*/
import "C"

import (
	"context"
	"sync"
	"time"
	"unsafe"

	"github.com/SimonWaldherr/rpcodbc/internal/columnar"
	"github.com/SimonWaldherr/rpcodbc/internal/core"
	"github.com/SimonWaldherr/rpcodbc/internal/diag"
	"github.com/SimonWaldherr/rpcodbc/internal/dsn"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/handles"
	"github.com/SimonWaldherr/rpcodbc/internal/obslog"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcconfig"
)

// registry owns every live environment, connection, and statement
// handle, per §4.E.
var registry = handles.New(30 * time.Minute)

var (
	facadeOnce sync.Once
	facade     rpcclient.Facade
)

// defaultFacade lazily dials the rpcconfig-configured remote, per §5's
// "lazily-initialized default rpcconfig" process-wide state. A dial
// failure at this point degrades to the in-memory facade rather than
// panicking; every subsequent connection_init against it will itself
// fail cleanly with a remote exception.
func defaultFacade() rpcclient.Facade {
	facadeOnce.Do(func() {
		cfg := rpcconfig.Load()
		f, _, err := rpcclient.NewGRPC(rpcclient.GRPCConfig{
			Address:     cfg.Address,
			Insecure:    !cfg.TLS,
			CallTimeout: cfg.CallTimeout,
		})
		if err != nil {
			obslog.Errorf("dialing default rpc target %s: %v", cfg.Address, err)
			facade = rpcclient.NewMemory()
			return
		}
		facade = f
	})
	return facade
}

// fail converts err to a diagnostic record on q and returns SQL_ERROR,
// per the §4.I step 4 contract.
func fail(q *diag.Queue, err error) C.SQLRETURN {
	e, ok := err.(*errs.Error)
	if !ok {
		e = errs.Wrap(errs.TransportCommunication, err, "unexpected failure")
	}
	q.Push(e, int16(C.SQL_ERROR))
	return C.SQL_ERROR
}

// ============================================================================
// Handle allocation / release — §4.E
// ============================================================================

//export SQLAllocHandle
func SQLAllocHandle(handleType C.SQLSMALLINT, inputHandle C.SQLHANDLE, outputHandlePtr *C.SQLHANDLE) C.SQLRETURN {
	if outputHandlePtr == nil {
		return C.SQL_INVALID_HANDLE
	}
	switch handleType {
	case C.SQL_HANDLE_ENV:
		if inputHandle != nil {
			return C.SQL_ERROR
		}
		id, _ := registry.AllocEnv()
		*outputHandlePtr = C.SQLHANDLE(unsafe.Pointer(id))
		return C.SQL_SUCCESS

	case C.SQL_HANDLE_DBC:
		envID := uintptr(unsafe.Pointer(inputHandle))
		id, _, err := registry.AllocConn(envID)
		if err != nil {
			return C.SQL_INVALID_HANDLE
		}
		*outputHandlePtr = C.SQLHANDLE(unsafe.Pointer(id))
		return C.SQL_SUCCESS

	case C.SQL_HANDLE_STMT:
		connID := uintptr(unsafe.Pointer(inputHandle))
		id, _, err := registry.AllocStmt(context.Background(), connID)
		if err != nil {
			conn, ok := registry.Conn(connID)
			if !ok {
				return C.SQL_INVALID_HANDLE
			}
			return fail(conn.Diagnostics(), err)
		}
		*outputHandlePtr = C.SQLHANDLE(unsafe.Pointer(id))
		return C.SQL_SUCCESS

	case C.SQL_HANDLE_DESC:
		return C.SQL_ERROR

	default:
		return C.SQL_INVALID_HANDLE
	}
}

//export SQLAllocEnv
func SQLAllocEnv(environmentHandlePtr *C.SQLHENV) C.SQLRETURN {
	if environmentHandlePtr == nil {
		return C.SQL_INVALID_HANDLE
	}
	id, _ := registry.AllocEnv()
	*environmentHandlePtr = C.SQLHENV(unsafe.Pointer(id))
	return C.SQL_SUCCESS
}

//export SQLAllocConnect
func SQLAllocConnect(environmentHandle C.SQLHENV, connectionHandlePtr *C.SQLHDBC) C.SQLRETURN {
	if connectionHandlePtr == nil {
		return C.SQL_INVALID_HANDLE
	}
	envID := uintptr(unsafe.Pointer(environmentHandle))
	id, _, err := registry.AllocConn(envID)
	if err != nil {
		return C.SQL_INVALID_HANDLE
	}
	*connectionHandlePtr = C.SQLHDBC(unsafe.Pointer(id))
	return C.SQL_SUCCESS
}

//export SQLFreeHandle
func SQLFreeHandle(handleType C.SQLSMALLINT, handle C.SQLHANDLE) C.SQLRETURN {
	if handle == nil {
		return C.SQL_INVALID_HANDLE
	}
	id := uintptr(unsafe.Pointer(handle))
	ctx := context.Background()
	switch handleType {
	case C.SQL_HANDLE_ENV:
		if err := registry.FreeEnv(id); err != nil {
			return C.SQL_INVALID_HANDLE
		}
	case C.SQL_HANDLE_DBC:
		conn, ok := registry.Conn(id)
		if !ok {
			return C.SQL_INVALID_HANDLE
		}
		if err := conn.ReleaseDatabase(ctx); err != nil {
			return fail(conn.Diagnostics(), err)
		}
		if err := registry.FreeConn(id); err != nil {
			return C.SQL_INVALID_HANDLE
		}
	case C.SQL_HANDLE_STMT:
		stmt, ok := registry.Stmt(id)
		if !ok {
			return C.SQL_INVALID_HANDLE
		}
		if err := stmt.Release(ctx); err != nil {
			return fail(stmt.Diagnostics(), err)
		}
		if err := registry.FreeStmt(id); err != nil {
			return C.SQL_INVALID_HANDLE
		}
	default:
		return C.SQL_ERROR
	}
	return C.SQL_SUCCESS
}

// ============================================================================
// Environment attributes — §6.5
// ============================================================================

//export SQLSetEnvAttr
func SQLSetEnvAttr(environmentHandle C.SQLHENV, attribute C.SQLINTEGER, valuePtr C.SQLPOINTER, stringLength C.SQLINTEGER) C.SQLRETURN {
	env, ok := registry.Env(uintptr(unsafe.Pointer(environmentHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	env.Diagnostics().Clear()
	if err := env.SetAttr(core.EnvAttr(attribute), int32(uintptr(valuePtr))); err != nil {
		return fail(env.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

//export SQLGetEnvAttr
func SQLGetEnvAttr(environmentHandle C.SQLHENV, attribute C.SQLINTEGER, valuePtr C.SQLPOINTER, bufferLength C.SQLINTEGER, stringLengthPtr *C.SQLINTEGER) C.SQLRETURN {
	env, ok := registry.Env(uintptr(unsafe.Pointer(environmentHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	env.Diagnostics().Clear()
	v, err := env.GetAttr(core.EnvAttr(attribute))
	if err != nil {
		return fail(env.Diagnostics(), err)
	}
	if valuePtr != nil {
		*(*C.SQLINTEGER)(valuePtr) = C.SQLINTEGER(v)
	}
	if stringLengthPtr != nil {
		*stringLengthPtr = 4
	}
	return C.SQL_SUCCESS
}

// ============================================================================
// Connect / DriverConnect / Disconnect — §4.F, §4.I
// ============================================================================

//export SQLDriverConnect
func SQLDriverConnect(connectionHandle C.SQLHDBC, windowHandle C.SQLPOINTER, inConnectionString *C.SQLUCHAR, stringLength1 C.SQLSMALLINT,
	outConnectionString *C.SQLUCHAR, bufferLength C.SQLSMALLINT, stringLength2Ptr *C.SQLSMALLINT, driverCompletion C.SQLUSMALLINT) C.SQLRETURN {

	connID := uintptr(unsafe.Pointer(connectionHandle))
	conn, ok := registry.Conn(connID)
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	conn.Diagnostics().Clear()

	connStr := ""
	if inConnectionString != nil {
		connStr = C.GoString((*C.char)(unsafe.Pointer(inConnectionString)))
	}

	opts, err := dsn.Parse(connStr)
	if err != nil {
		return fail(conn.Diagnostics(), err)
	}
	if err := conn.Connect(context.Background(), defaultFacade(), opts); err != nil {
		return fail(conn.Diagnostics(), err)
	}

	if outConnectionString != nil && bufferLength > 0 {
		copyNarrowString(unsafe.Pointer(outConnectionString), int(bufferLength), connStr)
	}
	if stringLength2Ptr != nil {
		*stringLength2Ptr = C.SQLSMALLINT(len(connStr))
	}
	return C.SQL_SUCCESS
}

//export SQLConnect
func SQLConnect(connectionHandle C.SQLHDBC, serverName *C.SQLUCHAR, nameLength1 C.SQLSMALLINT,
	userName *C.SQLUCHAR, nameLength2 C.SQLSMALLINT, authentication *C.SQLUCHAR, nameLength3 C.SQLSMALLINT) C.SQLRETURN {

	connID := uintptr(unsafe.Pointer(connectionHandle))
	conn, ok := registry.Conn(connID)
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	conn.Diagnostics().Clear()

	server := cGoString(serverName)
	user := cGoString(userName)
	pwd := cGoString(authentication)
	connStr := dsn.BuildFromConnect(server, user, pwd)

	opts, err := dsn.Parse(connStr)
	if err != nil {
		return fail(conn.Diagnostics(), err)
	}
	if err := conn.Connect(context.Background(), defaultFacade(), opts); err != nil {
		return fail(conn.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

//export SQLDisconnect
func SQLDisconnect(connectionHandle C.SQLHDBC) C.SQLRETURN {
	conn, ok := registry.Conn(uintptr(unsafe.Pointer(connectionHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	conn.Diagnostics().Clear()
	if err := conn.Disconnect(context.Background()); err != nil {
		return fail(conn.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

// ============================================================================
// Statement text, parameters, execute — §4.G, §4.D
// ============================================================================

//export SQLPrepare
func SQLPrepare(statementHandle C.SQLHSTMT, statementText *C.SQLUCHAR, textLength C.SQLINTEGER) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	sql := cGoString(statementText)
	ctx := context.Background()
	if err := stmt.SetSQLQuery(ctx, sql); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	if err := stmt.Prepare(ctx); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

//export SQLExecDirect
func SQLExecDirect(statementHandle C.SQLHSTMT, statementText *C.SQLUCHAR, textLength C.SQLINTEGER) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	sql := cGoString(statementText)
	ctx := context.Background()
	if err := stmt.SetSQLQuery(ctx, sql); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	if err := stmt.Execute(ctx); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

//export SQLExecute
func SQLExecute(statementHandle C.SQLHSTMT) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	if err := stmt.Execute(context.Background()); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

// cParamSource re-reads a caller's bound parameter from its raw C
// pointers at the moment core.Statement.Execute asks for it, per §3's
// ParameterBinding invariant: the pointers are borrowed, not copied.
type cParamSource struct {
	cType     columnar.CType
	valuePtr  C.SQLPOINTER
	lengthPtr *C.SQLLEN
}

func (p *cParamSource) Read() (columnar.ParamInput, error) {
	var length C.SQLLEN = C.SQL_NTS
	if p.lengthPtr != nil {
		length = *p.lengthPtr
	}
	if length < 0 && length != C.SQL_NTS {
		return columnar.ParamInput{Null: true, CType: p.cType}, nil
	}

	switch p.cType {
	case columnar.CLong:
		if p.valuePtr == nil {
			return columnar.ParamInput{}, errs.New(errs.BindParameters, "null value pointer for SQL_C_LONG")
		}
		return columnar.ParamInput{CType: p.cType, Int64: int64(*(*C.int)(unsafe.Pointer(p.valuePtr)))}, nil
	case columnar.CSBigInt:
		if p.valuePtr == nil {
			return columnar.ParamInput{}, errs.New(errs.BindParameters, "null value pointer for SQL_C_SBIGINT")
		}
		return columnar.ParamInput{CType: p.cType, Int64: int64(*(*C.longlong)(unsafe.Pointer(p.valuePtr)))}, nil
	case columnar.CChar:
		raw := readCBytes(p.valuePtr, length, 1)
		return columnar.ParamInput{CType: p.cType, Text: string(trimNarrowNUL(raw))}, nil
	case columnar.CWChar:
		raw := readCBytes(p.valuePtr, length, 2)
		return columnar.ParamInput{CType: p.cType, Text: columnar.DecodeWideText(raw)}, nil
	default:
		return columnar.ParamInput{}, errs.New(errs.BindParameters, "unsupported C type %d", p.cType)
	}
}

//export SQLBindParameter
func SQLBindParameter(statementHandle C.SQLHSTMT, parameterNumber C.SQLUSMALLINT, inputOutputType C.SQLSMALLINT,
	valueType C.SQLSMALLINT, parameterType C.SQLSMALLINT, columnSize C.SQLULEN, decimalDigits C.SQLSMALLINT,
	parameterValuePtr C.SQLPOINTER, bufferLength C.SQLLEN, strLenOrIndPtr *C.SQLLEN) C.SQLRETURN {

	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()

	src := &cParamSource{
		cType:     columnar.CType(valueType),
		valuePtr:  parameterValuePtr,
		lengthPtr: strLenOrIndPtr,
	}
	if err := stmt.BindParameter(int(parameterNumber), src); err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	return C.SQL_SUCCESS
}

// ============================================================================
// Fetch / GetData / RowCount / NumResultCols — §4.G, §4.D
// ============================================================================

//export SQLFetch
func SQLFetch(statementHandle C.SQLHSTMT) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	has, err := stmt.Fetch(context.Background())
	if err != nil {
		return fail(stmt.Diagnostics(), err)
	}
	if !has {
		return C.SQL_NO_DATA
	}
	return C.SQL_SUCCESS
}

//export SQLGetData
func SQLGetData(statementHandle C.SQLHSTMT, columnNumber C.SQLUSMALLINT, targetType C.SQLSMALLINT,
	targetValuePtr C.SQLPOINTER, bufferLength C.SQLLEN, strLenOrIndPtr *C.SQLLEN) C.SQLRETURN {

	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()

	cell, err := stmt.GetData(int(columnNumber))
	if err != nil {
		return fail(stmt.Diagnostics(), err)
	}

	switch columnar.CType(targetType) {
	case columnar.CLong, columnar.CSBigInt:
		width := 4
		if columnar.CType(targetType) == columnar.CSBigInt {
			width = 8
		}
		data, null, err := columnar.EncodeInteger(cell, width)
		if err != nil {
			return fail(stmt.Diagnostics(), err)
		}
		if null {
			if strLenOrIndPtr != nil {
				*strLenOrIndPtr = C.SQL_NULL_DATA
			}
			return C.SQL_SUCCESS
		}
		if targetValuePtr != nil {
			C.memcpy(unsafe.Pointer(targetValuePtr), unsafe.Pointer(&data[0]), C.size_t(len(data)))
		}
		if strLenOrIndPtr != nil {
			*strLenOrIndPtr = C.SQLLEN(width)
		}
		return C.SQL_SUCCESS

	case columnar.CChar, columnar.CWChar:
		wide := columnar.CType(targetType) == columnar.CWChar
		res, err := columnar.EncodeCharacter(cell, int(bufferLength), wide)
		if err != nil {
			return fail(stmt.Diagnostics(), err)
		}
		if res.Null {
			if strLenOrIndPtr != nil {
				*strLenOrIndPtr = C.SQL_NULL_DATA
			}
			return C.SQL_SUCCESS
		}
		if targetValuePtr != nil && len(res.Data) > 0 {
			C.memcpy(unsafe.Pointer(targetValuePtr), unsafe.Pointer(&res.Data[0]), C.size_t(len(res.Data)))
		}
		if strLenOrIndPtr != nil {
			*strLenOrIndPtr = C.SQLLEN(res.UntruncatedLen)
		}
		if res.Truncated {
			stmt.Diagnostics().PushWarning(columnar.TruncationSQLState(), "string data, right-truncated")
			return C.SQL_SUCCESS_WITH_INFO
		}
		return C.SQL_SUCCESS

	default:
		return fail(stmt.Diagnostics(), errs.New(errs.FetchData, "unsupported target C type %d", targetType))
	}
}

//export SQLNumResultCols
func SQLNumResultCols(statementHandle C.SQLHSTMT, columnCountPtr *C.SQLSMALLINT) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	if columnCountPtr != nil {
		*columnCountPtr = C.SQLSMALLINT(stmt.NumResultCols())
	}
	return C.SQL_SUCCESS
}

//export SQLRowCount
func SQLRowCount(statementHandle C.SQLHSTMT, rowCountPtr *C.SQLLEN) C.SQLRETURN {
	stmt, ok := registry.Stmt(uintptr(unsafe.Pointer(statementHandle)))
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	stmt.Diagnostics().Clear()
	if rowCountPtr != nil {
		*rowCountPtr = C.SQLLEN(stmt.RowCount())
	}
	return C.SQL_SUCCESS
}

// ============================================================================
// Diagnostics — §4.C
// ============================================================================

func diagForHandle(handleType C.SQLSMALLINT, handle C.SQLHANDLE) (*diag.Queue, bool) {
	id := uintptr(unsafe.Pointer(handle))
	switch handleType {
	case C.SQL_HANDLE_ENV:
		env, ok := registry.Env(id)
		if !ok {
			return nil, false
		}
		return env.Diagnostics(), true
	case C.SQL_HANDLE_DBC:
		conn, ok := registry.Conn(id)
		if !ok {
			return nil, false
		}
		return conn.Diagnostics(), true
	case C.SQL_HANDLE_STMT:
		stmt, ok := registry.Stmt(id)
		if !ok {
			return nil, false
		}
		return stmt.Diagnostics(), true
	default:
		return nil, false
	}
}

//export SQLGetDiagRec
func SQLGetDiagRec(handleType C.SQLSMALLINT, handle C.SQLHANDLE, recNumber C.SQLSMALLINT,
	sqlState *C.SQLUCHAR, nativeErrorPtr *C.SQLINTEGER, messageText *C.SQLUCHAR,
	bufferLength C.SQLSMALLINT, textLengthPtr *C.SQLSMALLINT) C.SQLRETURN {

	q, ok := diagForHandle(handleType, handle)
	if !ok {
		return C.SQL_INVALID_HANDLE
	}
	rec, err := q.GetDiagRec(int(recNumber))
	if err != nil {
		e := err.(*errs.Error)
		if e.Kind == errs.NoMoreData {
			return C.SQL_NO_DATA
		}
		return C.SQL_ERROR
	}

	if sqlState != nil {
		copyNarrowString(unsafe.Pointer(sqlState), 6, rec.SQLState.String())
	}
	if nativeErrorPtr != nil {
		*nativeErrorPtr = C.SQLINTEGER(rec.Native)
	}
	if messageText != nil && bufferLength > 0 {
		copyNarrowString(unsafe.Pointer(messageText), int(bufferLength), rec.MessageText)
	}
	if textLengthPtr != nil {
		*textLengthPtr = C.SQLSMALLINT(len(rec.MessageText))
	}
	return C.SQL_SUCCESS
}

//export SQLGetDiagField
func SQLGetDiagField(handleType C.SQLSMALLINT, handle C.SQLHANDLE, recNumber C.SQLSMALLINT, diagIdentifier C.SQLSMALLINT,
	diagInfoPtr C.SQLPOINTER, bufferLength C.SQLSMALLINT, stringLengthPtr *C.SQLSMALLINT) C.SQLRETURN {

	q, ok := diagForHandle(handleType, handle)
	if !ok {
		return C.SQL_INVALID_HANDLE
	}

	id, ok := diagFieldID(int(diagIdentifier))
	if !ok {
		return C.SQL_ERROR
	}
	v, err := q.GetDiagField(int(recNumber), id)
	if err != nil {
		e := err.(*errs.Error)
		if e.Kind == errs.NoMoreData {
			return C.SQL_NO_DATA
		}
		return C.SQL_ERROR
	}

	switch val := v.(type) {
	case string:
		if diagInfoPtr != nil && bufferLength > 0 {
			copyNarrowString(unsafe.Pointer(diagInfoPtr), int(bufferLength), val)
		}
		if stringLengthPtr != nil {
			*stringLengthPtr = C.SQLSMALLINT(len(val))
		}
	case int32:
		if diagInfoPtr != nil {
			*(*C.SQLINTEGER)(unsafe.Pointer(diagInfoPtr)) = C.SQLINTEGER(val)
		}
	case int16:
		if diagInfoPtr != nil {
			*(*C.SQLSMALLINT)(unsafe.Pointer(diagInfoPtr)) = C.SQLSMALLINT(val)
		}
	case int64:
		if diagInfoPtr != nil {
			*(*C.SQLLEN)(unsafe.Pointer(diagInfoPtr)) = C.SQLLEN(val)
		}
	}
	return C.SQL_SUCCESS
}

func diagFieldID(cID int) (diag.DiagFieldID, bool) {
	switch cID {
	case int(C.SQL_DIAG_NUMBER):
		return diag.FieldNumber, true
	case int(C.SQL_DIAG_RETURNCODE):
		return diag.FieldReturnCode, true
	case int(C.SQL_DIAG_ROW_COUNT):
		return diag.FieldRowCount, true
	case int(C.SQL_DIAG_DYNAMIC_FUNCTION):
		return diag.FieldDynamicFunction, true
	case int(C.SQL_DIAG_CURSOR_ROW_COUNT):
		return diag.FieldCursorRowCount, true
	case int(C.SQL_DIAG_SQLSTATE):
		return diag.FieldSQLState, true
	case int(C.SQL_DIAG_NATIVE):
		return diag.FieldNative, true
	case int(C.SQL_DIAG_MESSAGE_TEXT):
		return diag.FieldMessageText, true
	case int(C.SQL_DIAG_CLASS_ORIGIN):
		return diag.FieldClassOrigin, true
	case int(C.SQL_DIAG_CONNECTION_NAME):
		return diag.FieldConnectionName, true
	case int(C.SQL_DIAG_SERVER_NAME):
		return diag.FieldServerName, true
	case int(C.SQL_DIAG_ROW_NUMBER):
		return diag.FieldRowNumber, true
	case int(C.SQL_DIAG_COLUMN_NUMBER):
		return diag.FieldColumnNumber, true
	default:
		return 0, false
	}
}

// ============================================================================
// C memory helpers
// ============================================================================

func cGoString(p *C.SQLUCHAR) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(p)))
}

// copyNarrowString copies s into dst as a NUL-terminated narrow string,
// truncated to at most bufLen bytes including the terminator.
func copyNarrowString(dst unsafe.Pointer, bufLen int, s string) {
	if bufLen <= 0 {
		return
	}
	n := len(s)
	if n >= bufLen {
		n = bufLen - 1
	}
	if n > 0 {
		C.memcpy(dst, unsafe.Pointer(unsafe.StringData(s)), C.size_t(n))
	}
	*(*C.char)(unsafe.Pointer(uintptr(dst) + uintptr(n))) = 0
}

// readCBytes reads a caller's input buffer honoring the SQL_NTS
// sentinel: for narrow/wide text, scan for the unit-sized NUL when
// length is SQL_NTS, else read exactly length bytes.
func readCBytes(ptr C.SQLPOINTER, length C.SQLLEN, unitSize int) []byte {
	if ptr == nil {
		return nil
	}
	if length != C.SQL_NTS {
		if length <= 0 {
			return nil
		}
		return C.GoBytes(unsafe.Pointer(ptr), C.int(length))
	}
	// Scan for a NUL unit, capped generously to avoid runaway reads on
	// a malformed caller buffer.
	const maxScan = 1 << 20
	base := unsafe.Pointer(ptr)
	for i := 0; i < maxScan; i += unitSize {
		unit := C.GoBytes(unsafe.Pointer(uintptr(base)+uintptr(i)), C.int(unitSize))
		allZero := true
		for _, b := range unit {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return C.GoBytes(base, C.int(i))
		}
	}
	return nil
}

func trimNarrowNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func main() {}
