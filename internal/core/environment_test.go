package core

import (
	"testing"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
)

func TestEnvironmentDefaultVersion(t *testing.T) {
	env := NewEnvironment()
	v, err := env.GetAttr(AttrOdbcVersion)
	if err != nil || v != 3 {
		t.Fatalf("got %d, %v, want 3", v, err)
	}
}

func TestEnvironmentSetUnknownAttr(t *testing.T) {
	env := NewEnvironment()
	err := env.SetAttr(AttrConnectionPool, 1)
	if err == nil {
		t.Fatal("expected error setting ConnectionPooling")
	}
	if e, ok := err.(*errs.Error); !ok || e.Kind != errs.UnknownAttribute {
		t.Fatalf("expected UnknownAttribute, got %v", err)
	}
}

func TestEnvironmentRoundTripVersion(t *testing.T) {
	env := NewEnvironment()
	if err := env.SetAttr(AttrOdbcVersion, 2); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	v, err := env.GetAttr(AttrOdbcVersion)
	if err != nil || v != 2 {
		t.Fatalf("got %d, %v, want 2", v, err)
	}
}
