package lisp

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNil Kind = iota
	KindNumber
	KindString
	KindBool
	KindQuoted
	KindApplication
	KindSymbol
	KindBuiltin
	KindClosure
)

// BuiltinFn is a named native function. Two builtin expressions are the same
// function only if they hold the same *BuiltinFn.
type BuiltinFn struct {
	Name string
	Fn   Builtin
}

// Closure is a user-defined function. Params is either a single Symbol or an
// Application of Symbols; it is only checked when the closure is applied.
type Closure struct {
	Params Expr
	Body   Expr
	Env    *Env
}

// Expr is every piece of source and every runtime value.
type Expr struct {
	Kind    Kind
	Num     float64
	Bool    bool
	Str     string
	List    []Expr
	Quoted  *Expr
	Builtin *BuiltinFn
	Closure *Closure
}

func Nil() Expr               { return Expr{Kind: KindNil} }
func Number(f float64) Expr   { return Expr{Kind: KindNumber, Num: f} }
func String(s string) Expr    { return Expr{Kind: KindString, Str: s} }
func Bool(b bool) Expr        { return Expr{Kind: KindBool, Bool: b} }
func Symbol(name string) Expr { return Expr{Kind: KindSymbol, Str: name} }

func Application(xs ...Expr) Expr {
	if xs == nil {
		xs = []Expr{}
	}
	return Expr{Kind: KindApplication, List: xs}
}

func Quote(e Expr) Expr {
	return Expr{Kind: KindQuoted, Quoted: &e}
}

func NewBuiltin(name string, fn Builtin) Expr {
	return Expr{Kind: KindBuiltin, Builtin: &BuiltinFn{Name: name, Fn: fn}}
}

func NewClosure(params, body Expr, env *Env) Expr {
	return Expr{Kind: KindClosure, Closure: &Closure{Params: params, Body: body, Env: env}}
}

func (e Expr) KindName() string {
	return e.Kind.String()
}

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	case KindQuoted:
		return "QuotedList"
	case KindApplication:
		return "Application"
	case KindSymbol:
		return "Symbol"
	case KindBuiltin:
		return "Builtin"
	case KindClosure:
		return "Closure"
	default:
		return "Unknown"
	}
}

// --- Typed accessors ---

func (e Expr) expect(k Kind) error {
	if e.Kind != k {
		return typeMismatch(k, e.Kind)
	}
	return nil
}

func (e Expr) AsNumber() (float64, error) {
	if err := e.expect(KindNumber); err != nil {
		return 0, err
	}
	return e.Num, nil
}

func (e Expr) AsString() (string, error) {
	if err := e.expect(KindString); err != nil {
		return "", err
	}
	return e.Str, nil
}

func (e Expr) AsBool() (bool, error) {
	if err := e.expect(KindBool); err != nil {
		return false, err
	}
	return e.Bool, nil
}

func (e Expr) AsSymbol() (string, error) {
	if err := e.expect(KindSymbol); err != nil {
		return "", err
	}
	return e.Str, nil
}

func (e Expr) AsList() ([]Expr, error) {
	if err := e.expect(KindApplication); err != nil {
		return nil, err
	}
	return e.List, nil
}

func (e Expr) AsQuoted() (Expr, error) {
	if err := e.expect(KindQuoted); err != nil {
		return Expr{}, err
	}
	return *e.Quoted, nil
}

func (e Expr) AsBuiltin() (*BuiltinFn, error) {
	if err := e.expect(KindBuiltin); err != nil {
		return nil, err
	}
	return e.Builtin, nil
}

func (e Expr) AsClosure() (*Closure, error) {
	if err := e.expect(KindClosure); err != nil {
		return nil, err
	}
	return e.Closure, nil
}

// --- Display ---

// String renders e as source text. Strings are quoted.
func (e Expr) String() string {
	switch e.Kind {
	case KindNil:
		return "nil"
	case KindNumber:
		return strconv.FormatFloat(e.Num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(e.Str)
	case KindBool:
		if e.Bool {
			return "#t"
		}
		return "#f"
	case KindSymbol:
		return e.Str
	case KindQuoted:
		return "'" + e.Quoted.String()
	case KindApplication:
		parts := make([]string, len(e.List))
		for i, x := range e.List {
			parts[i] = x.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	case KindBuiltin:
		return fmt.Sprintf("<builtin:%s>", e.Builtin.Name)
	case KindClosure:
		return fmt.Sprintf("(lambda %s %s)", e.Closure.Params.String(), e.Closure.Body.String())
	default:
		return fmt.Sprintf("<unknown:%d>", e.Kind)
	}
}

// Display renders e for console output: a top-level string is written bare.
func (e Expr) Display() string {
	if e.Kind == KindString {
		return e.Str
	}
	return e.String()
}

// Equal compares two expressions structurally. Builtins compare by identity,
// closures by pointer.
func Equal(a, b Expr) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindNumber:
		return a.Num == b.Num
	case KindString, KindSymbol:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindQuoted:
		return Equal(*a.Quoted, *b.Quoted)
	case KindApplication:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindBuiltin:
		return a.Builtin == b.Builtin
	case KindClosure:
		return a.Closure == b.Closure
	}
	return false
}

// ExprToGo converts an expression to a native Go value for JSON serialization.
// Quoted lists become arrays; symbols keep a "sym:" prefix.
func ExprToGo(e Expr) (any, error) {
	switch e.Kind {
	case KindNil:
		return nil, nil
	case KindNumber:
		return e.Num, nil
	case KindString:
		return e.Str, nil
	case KindBool:
		return e.Bool, nil
	case KindSymbol:
		return "sym:" + e.Str, nil
	case KindQuoted:
		return ExprToGo(*e.Quoted)
	case KindApplication:
		arr := make([]any, len(e.List))
		for i, x := range e.List {
			v, err := ExprToGo(x)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case KindBuiltin, KindClosure:
		return e.String(), nil
	default:
		return nil, fmt.Errorf("unknown expression kind %d", e.Kind)
	}
}

// GoToExpr converts a native Go value (from JSON) to an expression. Arrays
// become quoted lists so they stay data when fed back to the evaluator.
func GoToExpr(v any) Expr {
	switch val := v.(type) {
	case nil:
		return Nil()
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case int:
		return Number(float64(val))
	case string:
		if strings.HasPrefix(val, "sym:") {
			return Symbol(val[4:])
		}
		return String(val)
	case []any:
		elems := make([]Expr, len(val))
		for i, x := range val {
			elems[i] = GoToExpr(x)
			if elems[i].Kind == KindQuoted {
				elems[i] = *elems[i].Quoted
			}
		}
		return Quote(Application(elems...))
	default:
		return Nil()
	}
}
