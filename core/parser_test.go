package lisp

import (
	"errors"
	"testing"
)

func parseOne(t *testing.T, input string) Expr {
	t.Helper()
	e, err := ParseOne(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return e
}

func TestParseNumber(t *testing.T) {
	for _, tc := range []struct {
		input string
		val   float64
	}{
		{"42", 42},
		{"-7", -7},
		{"3.14", 3.14},
		{"+5", 5},
		{".5", 0.5},
		{"-.25", -0.25},
		{"1e3", 1000},
	} {
		e := parseOne(t, tc.input)
		if e.Kind != KindNumber || e.Num != tc.val {
			t.Fatalf("%q: expected Number %v, got %s", tc.input, tc.val, e)
		}
	}
}

func TestParseBool(t *testing.T) {
	if e := parseOne(t, "#t"); !Equal(e, Bool(true)) {
		t.Fatalf("expected #t, got %s", e)
	}
	if e := parseOne(t, "#f"); !Equal(e, Bool(false)) {
		t.Fatalf("expected #f, got %s", e)
	}
}

func TestParseNil(t *testing.T) {
	if e := parseOne(t, "nil"); e.Kind != KindNil {
		t.Fatalf("expected Nil, got %s", e)
	}
}

func TestParseString(t *testing.T) {
	e := parseOne(t, `"hello world"`)
	if e.Kind != KindString || e.Str != "hello world" {
		t.Fatalf("expected String 'hello world', got %s", e)
	}
}

func TestParseStringEscapes(t *testing.T) {
	e := parseOne(t, `"line\none\ttab\\ \"q\""`)
	if e.Str != "line\none\ttab\\ \"q\"" {
		t.Fatalf("escape mismatch: %q", e.Str)
	}
}

func TestParseSymbols(t *testing.T) {
	for _, name := range []string{"+", "-", "string-append", "++", "!=", "<=", "foo?", "inf", "$0"} {
		e := parseOne(t, name)
		if !Equal(e, Symbol(name)) {
			t.Fatalf("expected Symbol %s, got %s (%s)", name, e, e.KindName())
		}
	}
}

func TestParseApplication(t *testing.T) {
	e := parseOne(t, "(+ 1 (* 2 3))")
	want := Application(Symbol("+"), Number(1), Application(Symbol("*"), Number(2), Number(3)))
	if !Equal(e, want) {
		t.Fatalf("expected %s, got %s", want, e)
	}
}

func TestParseEmptyApplication(t *testing.T) {
	e := parseOne(t, "()")
	if e.Kind != KindApplication || len(e.List) != 0 {
		t.Fatalf("expected empty application, got %s", e)
	}
}

func TestParseBraceQuotes(t *testing.T) {
	e := parseOne(t, "{1 2 3}")
	want := Quote(Application(Number(1), Number(2), Number(3)))
	if !Equal(e, want) {
		t.Fatalf("expected %s, got %s", want, e)
	}
}

func TestParseQuoteMark(t *testing.T) {
	e := parseOne(t, "'(a b)")
	want := Quote(Application(Symbol("a"), Symbol("b")))
	if !Equal(e, want) {
		t.Fatalf("expected %s, got %s", want, e)
	}
	if e := parseOne(t, "'x"); !Equal(e, Quote(Symbol("x"))) {
		t.Fatalf("expected 'x, got %s", e)
	}
}

func TestParseComments(t *testing.T) {
	forms, err := Parse("; leading\n(+ 1 2) ; trailing\n; last")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 1 {
		t.Fatalf("expected 1 form, got %d", len(forms))
	}
}

func TestParseMultipleForms(t *testing.T) {
	forms, err := Parse("(define a 1)\n(+ a 1) 3")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 3 {
		t.Fatalf("expected 3 forms, got %d", len(forms))
	}
	if !Equal(forms[2], Number(3)) {
		t.Fatalf("expected 3, got %s", forms[2])
	}
}

func TestParseEmptyInput(t *testing.T) {
	forms, err := Parse("   \n ")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 0 {
		t.Fatalf("expected no forms, got %d", len(forms))
	}
}

func TestParseOneRejectsMultiple(t *testing.T) {
	if _, err := ParseOne("1 2"); !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected ParseFailed, got %v", err)
	}
}

func TestParseIncomplete(t *testing.T) {
	for _, input := range []string{"(+ 1", `"abc`, "{1 2", "'", `"a\`, "(define (f x)"} {
		_, err := Parse(input)
		if !errors.Is(err, ErrParseFailed) {
			t.Fatalf("%q: expected ParseFailed, got %v", input, err)
		}
		if !IsIncomplete(err) {
			t.Fatalf("%q: expected incomplete input", input)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{")", "(+ 1 2))", "(1 }", `"\q"`, "#x", "1.2.3"} {
		_, err := Parse(input)
		if !errors.Is(err, ErrParseFailed) {
			t.Fatalf("%q: expected ParseFailed, got %v", input, err)
		}
		if IsIncomplete(err) {
			t.Fatalf("%q: should not be reported as incomplete", input)
		}
	}
}
