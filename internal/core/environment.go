// Package core implements the driver's data model (§3) and the
// operations the C ABI entry points dispatch into: environment
// attributes, the connection lifecycle (§4.F), and the statement state
// machine (§4.G). It depends on internal/rpcclient's Facade interface
// only, never on a concrete transport.
package core

import (
	"github.com/SimonWaldherr/rpcodbc/internal/diag"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

// EnvAttr names the environment attribute identifiers recognized by
// SetEnvAttr/GetEnvAttr, per §6.5.
type EnvAttr int32

const (
	AttrOdbcVersion     EnvAttr = 200
	AttrConnectionPool  EnvAttr = 201
	AttrCpMatch         EnvAttr = 202
	AttrOutputNTS       EnvAttr = 10001
)

// Environment is the process-visible settings container allocated by
// AllocHandle(Env).
type Environment struct {
	odbcVersion int32
	diag        diag.Queue
}

// NewEnvironment constructs an environment with the default ODBC
// version (3).
func NewEnvironment() *Environment {
	return &Environment{odbcVersion: 3}
}

// Diagnostics returns the environment's diagnostic queue.
func (e *Environment) Diagnostics() *diag.Queue { return &e.diag }

// SetAttr implements SetEnvAttr. Only OdbcVersion is writable; the other
// recognized IDs and any unknown ID fail with UnknownAttribute (HY000).
func (e *Environment) SetAttr(id EnvAttr, value int32) error {
	if id == AttrOdbcVersion {
		e.odbcVersion = value
		return nil
	}
	return errs.New(errs.UnknownAttribute, "environment attribute %d is not settable", id)
}

// GetAttr implements GetEnvAttr.
func (e *Environment) GetAttr(id EnvAttr) (int32, error) {
	if id == AttrOdbcVersion {
		return e.odbcVersion, nil
	}
	return 0, errs.New(errs.UnknownAttribute, "environment attribute %d is not readable", id)
}
