package diag

import (
	"testing"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

func TestClearResetsQueue(t *testing.T) {
	var q Queue
	q.Push(errs.New(errs.ExecuteStatement, "boom"), -1)
	if q.Count() != 1 {
		t.Fatalf("expected 1 record, got %d", q.Count())
	}
	q.Clear()
	if q.Count() != 0 {
		t.Fatalf("expected 0 records after Clear, got %d", q.Count())
	}
}

func TestGetDiagRecBoundary(t *testing.T) {
	var q Queue
	if _, err := q.GetDiagRec(0); err == nil {
		t.Fatal("expected error for record 0")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.InvalidRecordNumber {
		t.Fatalf("expected InvalidRecordNumber, got %v", err)
	}

	q.Push(errs.New(errs.ExecuteStatement, "boom"), -1)
	if _, err := q.GetDiagRec(2); err == nil {
		t.Fatal("expected NoMoreData for record 2")
	} else if e, ok := err.(*errs.Error); !ok || e.Kind != errs.NoMoreData {
		t.Fatalf("expected NoMoreData, got %v", err)
	}

	rec, err := q.GetDiagRec(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.MessageText != "boom" {
		t.Errorf("got message %q", rec.MessageText)
	}
}

func TestGetDiagFieldHeaderAndRecord(t *testing.T) {
	var q Queue
	q.Push(errs.New(errs.ConnectionInit, "nope"), -1)

	n, err := q.GetDiagField(0, FieldNumber)
	if err != nil || n.(int32) != 1 {
		t.Fatalf("got %v, %v", n, err)
	}

	state, err := q.GetDiagField(1, FieldSQLState)
	if err != nil || state.(string) != "08001" {
		t.Fatalf("got %v, %v", state, err)
	}

	if _, err := q.GetDiagField(1, DiagFieldID(999)); err == nil {
		t.Fatal("expected error for unsupported field id")
	}
}
