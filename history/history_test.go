package history

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	lisp "github.com/Jedsek/lisp/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	traces := []lisp.Trace{
		{Source: "(+ 1 2)", Result: "3", Timestamp: "2026-01-01T00:00:00Z"},
		{Source: "(/ 1 0)", Error: "DivideByZero: 1 / 0", ErrorKind: "DivideByZero"},
		{Source: "5", Result: "5", Binding: "$0"},
	}
	for _, tr := range traces {
		if err := s.Record(ctx, tr); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Source != "(+ 1 2)" || entries[0].Result != "3" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[0].CreatedAt.Year() != 2026 {
		t.Fatalf("timestamp not preserved: %v", entries[0].CreatedAt)
	}
	if entries[1].ErrorKind != "DivideByZero" || entries[1].Result != "" {
		t.Fatalf("unexpected error entry %+v", entries[1])
	}
	if entries[2].Binding != "$0" || entries[2].CreatedAt.IsZero() {
		t.Fatalf("unexpected last entry %+v", entries[2])
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, src := range []string{"1", "2", "3", "4"} {
		s.Record(ctx, lisp.Trace{Source: src, Result: src})
	}

	lines, err := s.Lines(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines, []string{"3", "4"}) {
		t.Fatalf("expected the newest two oldest first, got %v", lines)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Record(ctx, lisp.Trace{Source: "1"})
	s.Record(ctx, lisp.Trace{Source: "2"})

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}

	s.Record(ctx, lisp.Trace{Source: "3"})
	entries, _ = s.Recent(ctx, 0)
	if len(entries) != 1 || entries[0].ID != 1 {
		t.Fatalf("ids should restart after clear, got %+v", entries)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Record(context.Background(), lisp.Trace{Source: "(define x 1)", Result: "x"})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	lines, err := s.Lines(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines, []string{"(define x 1)"}) {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestSessionRecordsIntoStore(t *testing.T) {
	s := openTestStore(t)
	session := lisp.NewSession(lisp.WithRecorder(s))
	if _, err := session.EvalSource(context.Background(), "(+ 1 1) nope"); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Result != "2" || entries[1].ErrorKind != "InvalidSymbol" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestSessionClearHistoryEmptiesStore(t *testing.T) {
	s := openTestStore(t)
	session := lisp.NewSession(lisp.WithRecorder(s))
	session.EvalSource(context.Background(), "1 2 3")
	if err := session.ClearHistory(context.Background()); err != nil {
		t.Fatal(err)
	}
	lines, err := s.Lines(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected an empty store, got %v", lines)
	}
}
