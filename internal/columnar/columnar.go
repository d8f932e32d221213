// Package columnar implements the C↔columnar bridge of §4.D: turning a
// set of bound parameters into a one-row Arrow record batch on submit,
// and turning a fetched batch cell into a value ready for a caller's C
// buffer on fetch. It also carries the raw-pointer byte-vector codec used
// for the "thrift-pointer" ownership handoff described in §9.
//
// This package never touches cgo or unsafe C buffers directly; the odbc
// package does the actual memcpy into caller memory, using the values
// this package produces.
package columnar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/text/encoding/unicode"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/sqlstate"
)

// wideCodec is the SQL_C_WCHAR transcoder, matching the platform's native
// UTF-16 (no byte-order mark, little-endian as on every SQL_C_WCHAR
// platform this driver targets).
var wideCodec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// CType enumerates the C value types this bridge understands, a subset of
// the ODBC SQL_C_* constants sufficient for §4.D's rules.
type CType int16

const (
	CLong    CType = 4  // SQL_C_LONG / SQL_C_SLONG, 32-bit signed integer
	CSBigInt CType = -25 // SQL_C_SBIGINT, 64-bit signed integer
	CChar    CType = 1  // SQL_C_CHAR, narrow string
	CWChar   CType = -8 // SQL_C_WCHAR, UTF-16 string
)

// NullSentinel is SQL_NULL_DATA.
const NullSentinel = -1

// NTS is the SQL_NTS null-terminated-string length sentinel.
const NTS = -3

// ParamInput is what the odbc layer decodes a caller's bound parameter
// into before handing it to BuildRecordBatch.
type ParamInput struct {
	Index int // 1-based
	CType CType
	Null  bool
	Int64 int64
	Text  string // already decoded to UTF-8, for CChar/CWChar
}

// DecodeWideText decodes a caller's UTF-16LE byte buffer (as produced by
// the platform's wchar_t) into UTF-8 using golang.org/x/text's UTF-16
// transcoder, honoring an NTS or explicit byte length exactly as §4.D
// specifies for character types.
func DecodeWideText(raw []byte) string {
	// Stop at the first embedded NUL unit, mirroring a null-terminated read.
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			raw = raw[:i]
			break
		}
	}
	out, err := wideCodec.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

// EncodeWideText encodes s to UTF-16LE bytes, NUL-terminated, for the read
// path's SQL_C_WCHAR targets.
func EncodeWideText(s string) []byte {
	enc, err := wideCodec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		enc = nil
	}
	return append(enc, 0, 0)
}

// BuildRecordBatch assembles the one-row record batch for the write path.
// Parameters become columns in slice order (callers pass them sorted by
// index); gaps in the indices are allowed, per §4.D ("indices with no
// binding are skipped").
func BuildRecordBatch(params []ParamInput) (arrow.Record, error) {
	if len(params) == 0 {
		return nil, errs.New(errs.BindParameters, "no bound parameters to assemble")
	}

	fields := make([]arrow.Field, len(params))
	for i, p := range params {
		name := fmt.Sprintf("p%d", p.Index)
		switch p.CType {
		case CLong:
			fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32, Nullable: true}
		case CSBigInt:
			fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}
		case CChar, CWChar:
			fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
		default:
			return nil, errs.New(errs.BindParameters, "unsupported C type %d for parameter %d", p.CType, p.Index)
		}
	}

	schema := arrow.NewSchema(fields, nil)
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, p := range params {
		b := rb.Field(i)
		if p.Null {
			b.AppendNull()
			continue
		}
		switch p.CType {
		case CLong:
			b.(*array.Int32Builder).Append(int32(p.Int64))
		case CSBigInt:
			b.(*array.Int64Builder).Append(p.Int64)
		case CChar, CWChar:
			b.(*array.StringBuilder).Append(p.Text)
		}
	}

	return rb.NewRecord(), nil
}

// FetchedCell is a decoded value from a record batch, ready for §4.D's
// read-path width/truncation handling.
type FetchedCell struct {
	Null  bool
	Int64 int64
	Text  string
}

// ReadCell extracts column col (1-based), row row (0-based) from rec.
func ReadCell(rec arrow.Record, row, col int) (FetchedCell, error) {
	if col < 1 || col > int(rec.NumCols()) {
		return FetchedCell{}, errs.New(errs.FetchData, "column %d out of range (have %d)", col, rec.NumCols())
	}
	arr := rec.Column(col - 1)
	if row < 0 || row >= arr.Len() {
		return FetchedCell{}, errs.New(errs.FetchData, "row %d out of range (have %d)", row, arr.Len())
	}
	if arr.IsNull(row) {
		return FetchedCell{Null: true}, nil
	}
	switch a := arr.(type) {
	case *array.Int32:
		return FetchedCell{Int64: int64(a.Value(row))}, nil
	case *array.Int64:
		return FetchedCell{Int64: a.Value(row)}, nil
	case *array.String:
		return FetchedCell{Text: a.Value(row)}, nil
	default:
		return FetchedCell{}, errs.New(errs.FetchData, "unsupported arrow type %s", arr.DataType())
	}
}

// EncodeInteger renders a cell as the requested integer width for the read
// path. width must be 4 or 8.
func EncodeInteger(cell FetchedCell, width int) (data []byte, null bool, err error) {
	if cell.Null {
		return nil, true, nil
	}
	switch width {
	case 4:
		data = make([]byte, 4)
		binary.NativeEndian.PutUint32(data, uint32(int32(cell.Int64)))
	case 8:
		data = make([]byte, 8)
		binary.NativeEndian.PutUint64(data, uint64(cell.Int64))
	default:
		return nil, false, errs.New(errs.FetchData, "unsupported integer width %d", width)
	}
	return data, false, nil
}

// TruncationResult carries the read path's character-encoding outcome,
// including whether the caller's buffer was too small.
type TruncationResult struct {
	Null             bool
	Data             []byte // NUL-terminated, truncated to bufferLen
	UntruncatedLen   int
	Truncated        bool
}

// EncodeCharacter renders a cell as a NUL-terminated string copy limited
// to bufferLen bytes, per §4.D's read-path character rule, returning
// whether the untruncated value was longer than the buffer (SQLSTATE
// 01004 per §7 rule 4).
func EncodeCharacter(cell FetchedCell, bufferLen int, wide bool) (TruncationResult, error) {
	if cell.Null {
		return TruncationResult{Null: true}, nil
	}
	var full []byte
	if wide {
		full = EncodeWideText(cell.Text)
	} else {
		full = append([]byte(cell.Text), 0)
	}
	untruncatedLen := len(full) - unitSize(wide) // exclude the NUL terminator
	if bufferLen <= 0 {
		return TruncationResult{Data: nil, UntruncatedLen: untruncatedLen, Truncated: untruncatedLen > 0}, nil
	}
	if len(full) <= bufferLen {
		return TruncationResult{Data: full, UntruncatedLen: untruncatedLen}, nil
	}
	copyLen := bufferLen - unitSize(wide)
	if copyLen < 0 {
		copyLen = 0
	}
	out := make([]byte, copyLen+unitSize(wide))
	copy(out, full[:copyLen])
	return TruncationResult{Data: out, UntruncatedLen: untruncatedLen, Truncated: true}, nil
}

func unitSize(wide bool) int {
	if wide {
		return 2
	}
	return 1
}

// TruncationSQLState is the SQLSTATE a truncated EncodeCharacter result
// should be reported with.
func TruncationSQLState() sqlstate.Code { return sqlstate.Named(sqlstate.WarningTruncation) }

// BatchSource is a lazy, forward-only sequence of record batches, per
// the ResultStream definition in §3. It backs a statement's result once
// the remote stream has been decoded.
type BatchSource interface {
	// Next returns the next record, or (nil, io.EOF) once exhausted.
	Next() (arrow.Record, error)
}

type sliceSource struct {
	batches []arrow.Record
	i       int
}

func (s *sliceSource) Next() (arrow.Record, error) {
	if s.i >= len(s.batches) {
		return nil, io.EOF
	}
	rec := s.batches[s.i]
	s.i++
	return rec, nil
}

// NewSliceSource wraps an already-materialized batch slice as a
// BatchSource, the shape the in-memory facade produces directly without
// any wire encoding.
func NewSliceSource(batches ...arrow.Record) BatchSource {
	return &sliceSource{batches: batches}
}

type ipcSource struct {
	rdr *ipc.Reader
}

func (s *ipcSource) Next() (arrow.Record, error) {
	if !s.rdr.Next() {
		if err := s.rdr.Err(); err != nil && err != io.EOF {
			return nil, errs.Wrap(errs.FetchData, err, "arrow ipc stream read")
		}
		return nil, io.EOF
	}
	rec := s.rdr.Record()
	rec.Retain()
	return rec, nil
}

// OpenIPCStream decodes r as an Arrow IPC streaming-format payload,
// the wire shape the default gRPC facade uses to carry a
// statement_execute_query result's record batches.
func OpenIPCStream(r io.Reader) (BatchSource, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.FetchData, err, "opening arrow ipc stream")
	}
	return &ipcSource{rdr: rdr}, nil
}

// EncodeIPCStream serializes batches to the Arrow IPC streaming format,
// the inverse of OpenIPCStream, using batches[0]'s schema for every
// record (they must share one schema, as a single result set does).
func EncodeIPCStream(batches []arrow.Record) ([]byte, error) {
	if len(batches) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(batches[0].Schema()))
	for _, rec := range batches {
		if err := w.Write(rec); err != nil {
			return nil, errs.Wrap(errs.FetchData, err, "writing arrow ipc stream")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.FetchData, err, "closing arrow ipc stream")
	}
	return buf.Bytes(), nil
}

// EncodePointerHandoff renders ptr (the producer's raw, now-surrendered
// pointer value) as native-endian bytes sized to a machine word, per §9's
// byte-vector carrier.
func EncodePointerHandoff(ptr uintptr) []byte {
	buf := make([]byte, 8)
	binary.NativeEndian.PutUint64(buf, uint64(ptr))
	return buf
}

// DecodePointerHandoff reverses EncodePointerHandoff.
func DecodePointerHandoff(buf []byte) (uintptr, error) {
	if len(buf) != 8 {
		return 0, errs.New(errs.FetchData, "malformed pointer handoff: %d bytes", len(buf))
	}
	return uintptr(binary.NativeEndian.Uint64(buf)), nil
}
