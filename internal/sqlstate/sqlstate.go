// Package sqlstate implements the closed catalog of ODBC SQLSTATE codes
// plus the open variant for codes the catalog does not name.
package sqlstate

// Code is a five-character SQLSTATE. The zero value is not a valid code.
type Code struct {
	known State
	raw   string
}

// State names every SQLSTATE this driver can produce on its own behalf.
// Remote-reported codes that don't match one of these fall back to Other.
type State int

const (
	Other State = iota
	Success
	GeneralWarning
	WarningTruncation
	NoData
	DynamicParamMismatch
	InvalidParamNumber
	ConnectionDoesNotExist
	ConnectionFailure
	FeatureNotSupported
	InvalidAuthSpec
	SyntaxErrorOrAccessRule
	CLIFunctionSequenceError
	CLIMemoryAlloc
	CLIInvalidDescriptorID
	CLIOptionalFeatureNotImplemented
	InvalidPortInDSN
	RemoteLinkFailure
)

var table = []struct {
	state State
	str   string
}{
	{Success, "00000"},
	{GeneralWarning, "01000"},
	{WarningTruncation, "01004"},
	{InvalidPortInDSN, "01S00"},
	{NoData, "02000"},
	{DynamicParamMismatch, "07009"},
	{InvalidParamNumber, "07001"},
	{ConnectionDoesNotExist, "08003"},
	{ConnectionFailure, "08001"},
	{RemoteLinkFailure, "08S01"},
	{FeatureNotSupported, "0A000"},
	{InvalidAuthSpec, "28000"},
	{SyntaxErrorOrAccessRule, "42000"},
	{CLIFunctionSequenceError, "HY010"},
	{CLIMemoryAlloc, "HY001"},
	{CLIInvalidDescriptorID, "HY091"},
	{CLIOptionalFeatureNotImplemented, "HY000"},
}

var byState = func() map[State]string {
	m := make(map[State]string, len(table))
	for _, e := range table {
		m[e.state] = e.str
	}
	return m
}()

var byString = func() map[string]State {
	m := make(map[string]State, len(table))
	for _, e := range table {
		m[e.str] = e.state
	}
	return m
}()

// Named constructs the Code for one of the catalog's named states.
func Named(s State) Code {
	str, ok := byState[s]
	if !ok {
		return Code{known: Other, raw: ""}
	}
	return Code{known: s, raw: str}
}

// Parse maps a five-character string to its catalog entry, or to the open
// Other variant (preserving the original string) when it is not listed.
func Parse(s string) Code {
	if st, ok := byString[s]; ok {
		return Code{known: st, raw: s}
	}
	return Code{known: Other, raw: s}
}

// String returns the five-character representation.
func (c Code) String() string {
	if c.raw == "" && c.known == Other {
		return "00000"
	}
	return c.raw
}

// IsSuccess reports class 00.
func (c Code) IsSuccess() bool { return len(c.raw) >= 2 && c.raw[:2] == "00" }

// IsWarning reports class 01.
func (c Code) IsWarning() bool { return len(c.raw) >= 2 && c.raw[:2] == "01" }

// IsError reports neither success nor warning.
func (c Code) IsError() bool { return !c.IsSuccess() && !c.IsWarning() }
