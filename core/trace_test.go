package lisp

import (
	"fmt"
	"testing"
)

func TestTraceToGo(t *testing.T) {
	tr := &Trace{
		Source:    "(+ 1 2)",
		Result:    "3",
		Binding:   "$0",
		Timestamp: "2026-02-27T20:00:00Z",
	}

	m := tr.ToGo()
	if m["source"] != "(+ 1 2)" {
		t.Fatalf("source mismatch: %v", m["source"])
	}
	if m["timestamp"] != "2026-02-27T20:00:00Z" {
		t.Fatalf("timestamp mismatch: %v", m["timestamp"])
	}
	if m["result"] != "3" {
		t.Fatalf("result mismatch: %v", m["result"])
	}
	if m["error"] != nil {
		t.Fatalf("error should be nil, got %v", m["error"])
	}
	if m["binding"] != "$0" {
		t.Fatalf("binding mismatch: %v", m["binding"])
	}
}

func TestTraceToGoError(t *testing.T) {
	tr := &Trace{Source: "(/ 1 0)"}
	tr.setError(&Error{Kind: DivideByZero, Msg: "1 / 0"})

	m := tr.ToGo()
	if m["result"] != nil {
		t.Fatalf("result should be nil, got %v", m["result"])
	}
	if m["error"] != "DivideByZero: 1 / 0" {
		t.Fatalf("error mismatch: %v", m["error"])
	}
	if m["kind"] != "DivideByZero" {
		t.Fatalf("kind mismatch: %v", m["kind"])
	}
	if _, ok := m["binding"]; ok {
		t.Fatal("binding should be omitted")
	}
}

func TestTraceSetErrorForeign(t *testing.T) {
	tr := &Trace{}
	tr.setError(fmt.Errorf("plain"))
	if tr.Error != "plain" || tr.ErrorKind != "" {
		t.Fatalf("unexpected trace %+v", tr)
	}

	tr = &Trace{}
	tr.setError(fmt.Errorf("wrapped: %w", invalidSymbol("x")))
	if tr.ErrorKind != "InvalidSymbol" {
		t.Fatalf("expected kind from wrapped error, got %q", tr.ErrorKind)
	}
}
