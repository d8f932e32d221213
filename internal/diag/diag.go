// Package diag implements the per-handle diagnostic queue: a header plus
// an ordered list of records, populated from errs.Error values and read
// back through the GetDiagRec/GetDiagField contract of §4.C.
package diag

import (
	"time"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/sqlstate"
)

// ClassOrigin distinguishes the two class-origin strings ODBC reports.
type ClassOrigin string

const (
	ClassOriginODBC3 ClassOrigin = "ODBC 3.0"
	ClassOriginISO   ClassOrigin = "ISO 9075"
)

// Record is one diagnostic record, 1-based when addressed.
type Record struct {
	SQLState      sqlstate.Code
	Native        int32
	MessageText   string
	ClassOrigin   ClassOrigin
	ConnectionName string
	ServerName    string
	RowNumber     int64
	ColumnNumber  int32
	at            time.Time
}

// Header carries the queue-wide fields read at record number 0.
type Header struct {
	ReturnCode      int16
	RowCount        int64
	DynamicFunction string
	DynamicFuncCode int32
	CursorRowCount  int64
}

// Queue is the diagnostic state owned by one handle.
type Queue struct {
	Header  Header
	records []Record
}

// Clear empties the queue and resets the header, per the "clear on entry
// to any non-trivial entry point" contract.
func (q *Queue) Clear() {
	q.records = q.records[:0]
	q.Header = Header{}
}

// Push appends a record built from err, per the "on error path, convert
// to a record and append" contract. It also sets Header.ReturnCode.
func (q *Queue) Push(err *errs.Error, returnCode int16) {
	q.records = append(q.records, Record{
		SQLState:    err.SQLState(),
		Native:      err.Native(),
		MessageText: err.Message,
		ClassOrigin: ClassOriginODBC3,
		at:          time.Now(),
	})
	q.Header.ReturnCode = returnCode
	q.Header.CursorRowCount = int64(len(q.records))
}

// PushWarning appends a warning record (e.g. right-truncation) without
// treating the call as an overall failure.
func (q *Queue) PushWarning(code sqlstate.Code, message string) {
	q.records = append(q.records, Record{
		SQLState:    code,
		MessageText: message,
		ClassOrigin: ClassOriginODBC3,
		at:          time.Now(),
	})
	q.Header.CursorRowCount = int64(len(q.records))
}

// Count returns the number of queued records.
func (q *Queue) Count() int { return len(q.records) }

// TrimBefore drops records pushed before cutoff. Used by the handle
// registry's background janitor to keep long-lived statements from
// accumulating unbounded diagnostic history.
func (q *Queue) TrimBefore(cutoff time.Time) {
	kept := q.records[:0]
	for _, r := range q.records {
		if r.at.IsZero() || r.at.After(cutoff) {
			kept = append(kept, r)
		}
	}
	q.records = kept
	q.Header.CursorRowCount = int64(len(q.records))
}

// GetDiagRec implements the GetDiagRec contract: n must be >= 1; NoMoreData
// if n exceeds the record count.
func (q *Queue) GetDiagRec(n int) (Record, error) {
	if n < 1 {
		return Record{}, errs.New(errs.InvalidRecordNumber, "record number must be >= 1, got %d", n)
	}
	if n > len(q.records) {
		return Record{}, errs.New(errs.NoMoreData, "no diagnostic record %d", n)
	}
	return q.records[n-1], nil
}

// DiagFieldID names the GetDiagField identifiers this driver supports.
type DiagFieldID int

const (
	FieldNumber DiagFieldID = iota
	FieldReturnCode
	FieldRowCount
	FieldDynamicFunction
	FieldCursorRowCount
	FieldSQLState
	FieldNative
	FieldMessageText
	FieldClassOrigin
	FieldConnectionName
	FieldServerName
	FieldRowNumber
	FieldColumnNumber
)

// GetDiagField implements the GetDiagField contract: n == 0 reads header
// fields, n >= 1 reads record fields. Unsupported (id, level) pairs return
// NoMoreData.
func (q *Queue) GetDiagField(n int, id DiagFieldID) (any, error) {
	if n == 0 {
		switch id {
		case FieldNumber:
			return int32(len(q.records)), nil
		case FieldReturnCode:
			return q.Header.ReturnCode, nil
		case FieldRowCount:
			return q.Header.RowCount, nil
		case FieldDynamicFunction:
			return q.Header.DynamicFunction, nil
		case FieldCursorRowCount:
			return q.Header.CursorRowCount, nil
		default:
			return nil, errs.New(errs.NoMoreData, "unsupported header diag field %d", id)
		}
	}

	rec, err := q.GetDiagRec(n)
	if err != nil {
		return nil, err
	}
	switch id {
	case FieldSQLState:
		return rec.SQLState.String(), nil
	case FieldNative:
		return rec.Native, nil
	case FieldMessageText:
		return rec.MessageText, nil
	case FieldClassOrigin:
		return string(rec.ClassOrigin), nil
	case FieldConnectionName:
		return rec.ConnectionName, nil
	case FieldServerName:
		return rec.ServerName, nil
	case FieldRowNumber:
		return rec.RowNumber, nil
	case FieldColumnNumber:
		return rec.ColumnNumber, nil
	default:
		return nil, errs.New(errs.NoMoreData, "unsupported record diag field %d", id)
	}
}
