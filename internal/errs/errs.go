// Package errs implements the core's error taxonomy: every failure the
// driver raises on its own behalf is one tagged Kind, carrying the
// source location it was raised from and mapping to a SQLSTATE and a
// native error code.
package errs

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/SimonWaldherr/rpcodbc/internal/sqlstate"
)

// Kind names a failure the core itself raises. RemoteDriverException is
// populated from a decoded RPC exception rather than raised locally.
type Kind int

const (
	Disconnected Kind = iota
	InvalidHandle
	InvalidRecordNumber
	InvalidDiagnosticIdentifier
	UnknownAttribute
	InvalidParameterNumber
	StatementNotExecuted
	DataNotFetched
	NoMoreData
	InvalidPort
	SetSQLQuery
	PrepareStatement
	ExecuteStatement
	BindParameters
	ConnectionInit
	RemoteDriverException
	FetchData
	TextConversion
	TransportCommunication
)

// RemoteErrorKind discriminates the DriverError payload of a decoded
// remote exception, per §4.H/§4.B.
type RemoteErrorKind int

const (
	RemoteGeneric RemoteErrorKind = iota
	RemoteInternal
	RemoteAuth
	RemoteMissingParam
	RemoteInvalidParam
	RemoteLogin
)

var authSensitiveParams = map[string]bool{
	"PRIV_KEY_FILE":         true,
	"PRIVATE_KEY_FILE":      true,
	"PRIV_KEY_FILE_PWD":     true,
	"TOKEN":                 true,
	"AUTHENTICATOR":         true,
	"USER":                  true,
	"PASSWORD":              true,
}

// IsAuthSensitiveParam reports whether name (case-insensitive) names one
// of the parameters that forces a RemoteInvalidParam/RemoteMissingParam
// failure to map to 28000 instead of 01S00.
func IsAuthSensitiveParam(name string) bool {
	return authSensitiveParams[strings.ToUpper(name)]
}

// Error is the concrete error value every core operation returns on
// failure. It carries enough to build one DiagnosticRecord.
type Error struct {
	Kind        Kind
	Remote      RemoteErrorKind
	ParamName   string
	Message     string
	NativeError int32
	Location    string
	Cause       error
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Location, e.Message, e.SQLState())
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.SQLState())
}

func (e *Error) Unwrap() error { return e.Cause }

// SQLState maps the error's Kind (and, for RemoteDriverException, its
// Remote sub-kind and parameter name) to a SQLSTATE code per §4.B.
func (e *Error) SQLState() sqlstate.Code {
	switch e.Kind {
	case Disconnected, InvalidHandle:
		return sqlstate.Named(sqlstate.ConnectionDoesNotExist)
	case InvalidRecordNumber:
		return sqlstate.Named(sqlstate.DynamicParamMismatch)
	case InvalidDiagnosticIdentifier:
		return sqlstate.Named(sqlstate.CLIInvalidDescriptorID)
	case UnknownAttribute:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	case InvalidParameterNumber:
		return sqlstate.Named(sqlstate.InvalidParamNumber)
	case StatementNotExecuted, DataNotFetched:
		return sqlstate.Named(sqlstate.CLIFunctionSequenceError)
	case NoMoreData:
		return sqlstate.Named(sqlstate.NoData)
	case InvalidPort:
		return sqlstate.Named(sqlstate.InvalidPortInDSN)
	case SetSQLQuery, PrepareStatement:
		return sqlstate.Named(sqlstate.SyntaxErrorOrAccessRule)
	case ExecuteStatement:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	case BindParameters:
		return sqlstate.Named(sqlstate.InvalidParamNumber)
	case ConnectionInit:
		return sqlstate.Named(sqlstate.ConnectionFailure)
	case RemoteDriverException:
		return e.remoteSQLState()
	case FetchData:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	case TextConversion:
		return sqlstate.Named(sqlstate.WarningTruncation)
	case TransportCommunication:
		return sqlstate.Named(sqlstate.ConnectionFailure)
	default:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	}
}

func (e *Error) remoteSQLState() sqlstate.Code {
	switch e.Remote {
	case RemoteAuth, RemoteLogin:
		return sqlstate.Named(sqlstate.InvalidAuthSpec)
	case RemoteMissingParam, RemoteInvalidParam:
		if IsAuthSensitiveParam(e.ParamName) {
			return sqlstate.Named(sqlstate.InvalidAuthSpec)
		}
		return sqlstate.Named(sqlstate.InvalidPortInDSN)
	case RemoteInternal, RemoteGeneric:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	default:
		return sqlstate.Named(sqlstate.CLIOptionalFeatureNotImplemented)
	}
}

// Native returns the native error integer: the remote login code when
// present, else 0.
func (e *Error) Native() int32 {
	if e.Kind == RemoteDriverException && e.Remote == RemoteLogin {
		return e.NativeError
	}
	return 0
}

// New builds an Error tagged with the caller's source location.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: caller(),
	}
}

// Wrap builds an Error from an underlying cause, tagged with kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: caller(),
		Cause:    cause,
	}
}

// NewRemote builds a RemoteDriverException from a decoded remote
// exception's fields.
func NewRemote(remote RemoteErrorKind, paramName, message string, native int32) *Error {
	return &Error{
		Kind:        RemoteDriverException,
		Remote:      remote,
		ParamName:   paramName,
		Message:     message,
		NativeError: native,
		Location:    caller(),
	}
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}
