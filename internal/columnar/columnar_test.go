package columnar

import (
	"bytes"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

func TestBuildRecordBatchMixedTypes(t *testing.T) {
	rec, err := BuildRecordBatch([]ParamInput{
		{Index: 1, CType: CLong, Int64: 42},
		{Index: 2, CType: CChar, Text: "abc"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Release()

	if rec.NumCols() != 2 || rec.NumRows() != 1 {
		t.Fatalf("got %d cols, %d rows", rec.NumCols(), rec.NumRows())
	}

	c1, err := ReadCell(rec, 0, 1)
	if err != nil || c1.Int64 != 42 {
		t.Fatalf("col1: %+v, %v", c1, err)
	}
	c2, err := ReadCell(rec, 0, 2)
	if err != nil || c2.Text != "abc" {
		t.Fatalf("col2: %+v, %v", c2, err)
	}
}

func TestBuildRecordBatchSkipsUnboundAndHandlesNull(t *testing.T) {
	rec, err := BuildRecordBatch([]ParamInput{
		{Index: 1, CType: CLong, Null: true},
		{Index: 3, CType: CSBigInt, Int64: 99},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Release()

	if rec.NumCols() != 2 {
		t.Fatalf("expected 2 bound columns, got %d", rec.NumCols())
	}
	c1, _ := ReadCell(rec, 0, 1)
	if !c1.Null {
		t.Error("expected column 1 to be null")
	}
}

func TestEncodeCharacterTruncation(t *testing.T) {
	cell := FetchedCell{Text: "hello, world"}
	res, err := EncodeCharacter(cell, 8, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if res.UntruncatedLen != 12 {
		t.Errorf("got untruncated len %d, want 12", res.UntruncatedLen)
	}
	if string(res.Data) != "hello, \x00" {
		t.Errorf("got %q", res.Data)
	}
}

func TestEncodeCharacterFitsExactly(t *testing.T) {
	cell := FetchedCell{Text: "abc"}
	res, err := EncodeCharacter(cell, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Fatal("did not expect truncation")
	}
	if string(res.Data) != "abc\x00" {
		t.Errorf("got %q", res.Data)
	}
}

func TestEncodeIntegerNull(t *testing.T) {
	data, null, err := EncodeInteger(FetchedCell{Null: true}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !null || data != nil {
		t.Errorf("expected null with no data, got null=%v data=%v", null, data)
	}
}

func TestPointerHandoffRoundTrip(t *testing.T) {
	var ptr uintptr = 0xdeadbeef
	buf := EncodePointerHandoff(ptr)
	got, err := DecodePointerHandoff(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ptr {
		t.Errorf("got %x, want %x", got, ptr)
	}
}

func TestIPCStreamRoundTrip(t *testing.T) {
	rec, err := BuildRecordBatch([]ParamInput{{Index: 1, CType: CLong, Int64: 7}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Release()

	wire, err := EncodeIPCStream([]arrow.Record{rec})
	if err != nil {
		t.Fatalf("EncodeIPCStream: %v", err)
	}
	if len(wire) == 0 {
		t.Fatal("expected non-empty encoded stream")
	}

	src, err := OpenIPCStream(bytes.NewReader(wire))
	if err != nil {
		t.Fatalf("OpenIPCStream: %v", err)
	}
	got, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	defer got.Release()
	if got.NumRows() != 1 {
		t.Errorf("got %d rows, want 1", got.NumRows())
	}
	cell, err := ReadCell(got, 0, 1)
	if err != nil || cell.Int64 != 7 {
		t.Fatalf("cell: %+v, %v", cell, err)
	}

	if _, err := src.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after exhausting stream, got %v", err)
	}
}

func TestWideTextRoundTrip(t *testing.T) {
	s := "héllo"
	encoded := EncodeWideText(s)
	decoded := DecodeWideText(encoded)
	if decoded != s {
		t.Errorf("got %q, want %q", decoded, s)
	}
}
