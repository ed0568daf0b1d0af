package lisp

import (
	"errors"
	"io"
	"reflect"
	"testing"
)

func TestExprString(t *testing.T) {
	for _, tc := range []struct {
		expr Expr
		want string
	}{
		{Nil(), "nil"},
		{Number(7), "7"},
		{Number(2.5), "2.5"},
		{Number(-0.25), "-0.25"},
		{String("hi\n"), `"hi\n"`},
		{Bool(true), "#t"},
		{Bool(false), "#f"},
		{Symbol("foo"), "foo"},
		{Application(Symbol("+"), Number(1), Number(2)), "(+ 1 2)"},
		{Application(), "()"},
		{Quote(Application(Number(1), String("a"))), `'(1 "a")`},
		{NewBuiltin("car", nil), "<builtin:car>"},
		{NewClosure(Application(Symbol("x")), Symbol("x"), nil), "(lambda (x) x)"},
	} {
		if got := tc.expr.String(); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestExprDisplay(t *testing.T) {
	if got := String("bare").Display(); got != "bare" {
		t.Fatalf("expected bare string, got %s", got)
	}
	if got := Quote(Application(String("q"))).Display(); got != `'("q")` {
		t.Fatalf("nested strings stay quoted, got %s", got)
	}
}

func TestExprEqual(t *testing.T) {
	a := Application(Symbol("f"), Quote(Application(Number(1))))
	b := Application(Symbol("f"), Quote(Application(Number(1))))
	if !Equal(a, b) {
		t.Fatal("structurally equal expressions should be equal")
	}
	if Equal(Number(1), String("1")) {
		t.Fatal("different kinds should differ")
	}
	if Equal(Application(Number(1)), Application(Number(1), Number(2))) {
		t.Fatal("different lengths should differ")
	}

	env := NewRootEnv(io.Discard)
	car1, _ := env.Lookup("car")
	car2, _ := env.Lookup("car")
	if !Equal(car1, car2) {
		t.Fatal("the same builtin should equal itself")
	}
	if Equal(NewBuiltin("car", nil), NewBuiltin("car", nil)) {
		t.Fatal("distinct builtins should differ")
	}

	c := NewClosure(Symbol("x"), Symbol("x"), nil)
	if !Equal(c, c) || Equal(c, NewClosure(Symbol("x"), Symbol("x"), nil)) {
		t.Fatal("closures compare by identity")
	}
}

func TestExprAccessors(t *testing.T) {
	if n, err := Number(3).AsNumber(); err != nil || n != 3 {
		t.Fatalf("AsNumber: %v %v", n, err)
	}
	if s, err := String("s").AsString(); err != nil || s != "s" {
		t.Fatalf("AsString: %v %v", s, err)
	}
	if b, err := Bool(true).AsBool(); err != nil || !b {
		t.Fatalf("AsBool: %v %v", b, err)
	}
	if s, err := Symbol("x").AsSymbol(); err != nil || s != "x" {
		t.Fatalf("AsSymbol: %v %v", s, err)
	}
	if l, err := Application(Nil()).AsList(); err != nil || len(l) != 1 {
		t.Fatalf("AsList: %v %v", l, err)
	}
	if q, err := Quote(Number(1)).AsQuoted(); err != nil || !Equal(q, Number(1)) {
		t.Fatalf("AsQuoted: %v %v", q, err)
	}
	if _, err := NewBuiltin("f", nil).AsBuiltin(); err != nil {
		t.Fatalf("AsBuiltin: %v", err)
	}
	if _, err := NewClosure(Nil(), Nil(), nil).AsClosure(); err != nil {
		t.Fatalf("AsClosure: %v", err)
	}
}

func TestExprAccessorMismatch(t *testing.T) {
	_, err := String("x").AsNumber()
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Msg != "expect Number, found String" {
		t.Fatalf("unexpected message: %v", err)
	}
	if _, err := Number(1).AsQuoted(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}

func TestExprToGo(t *testing.T) {
	v, err := ExprToGo(Quote(Application(Number(1), String("a"), Symbol("b"), Bool(true), Nil())))
	if err != nil {
		t.Fatal(err)
	}
	want := []any{float64(1), "a", "sym:b", true, nil}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("expected %v, got %v", want, v)
	}

	v, err = ExprToGo(NewBuiltin("car", nil))
	if err != nil || v != "<builtin:car>" {
		t.Fatalf("builtin: %v %v", v, err)
	}
}

func TestGoToExpr(t *testing.T) {
	got := GoToExpr([]any{float64(1), "a", "sym:b", []any{true}, nil})
	want := Quote(Application(Number(1), String("a"), Symbol("b"), Application(Bool(true)), Nil()))
	if !Equal(got, want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := GoToExpr(3); !Equal(got, Number(3)) {
		t.Fatalf("expected 3, got %s", got)
	}
}

func TestGoToExprRoundTrip(t *testing.T) {
	e := Quote(Application(Number(1.5), String("s"), Application(Symbol("x"))))
	v, err := ExprToGo(e)
	if err != nil {
		t.Fatal(err)
	}
	if back := GoToExpr(v); !Equal(back, e) {
		t.Fatalf("expected %s, got %s", e, back)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := invalidArgsLen("if", "3 args", 2)
	if err.Error() != "InvalidArgsLen: if: expected 3 args, got 2" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if ErrDivideByZero.Error() != "DivideByZero" {
		t.Fatalf("unexpected sentinel message %q", ErrDivideByZero.Error())
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatal("kinds should not cross-match")
	}
}
