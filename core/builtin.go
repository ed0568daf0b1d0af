package lisp

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Builtin is a function implemented in Go, called with eagerly evaluated arguments.
type Builtin func(args []Expr) (Expr, error)

// Builtins returns the builtin table. I/O builtins write to out.
func Builtins(out io.Writer) map[string]Builtin {
	return map[string]Builtin{
		// arithmetic
		"+":   reducer("+", func(a, b float64) (float64, error) { return a + b, nil }),
		"*":   reducer("*", func(a, b float64) (float64, error) { return a * b, nil }),
		"%":   reducer("%", func(a, b float64) (float64, error) { return math.Mod(a, b), nil }),
		"^":   reducer("^", func(a, b float64) (float64, error) { return math.Pow(a, b), nil }),
		"max": reducer("max", func(a, b float64) (float64, error) { return math.Max(a, b), nil }),
		"min": reducer("min", func(a, b float64) (float64, error) { return math.Min(a, b), nil }),
		"/":   reducer("/", divide),
		"-":   builtinSub,

		// chained comparisons
		">":  orderedChain(">", func(a, b float64) bool { return a > b }),
		"<":  orderedChain("<", func(a, b float64) bool { return a < b }),
		">=": orderedChain(">=", func(a, b float64) bool { return a >= b }),
		"<=": orderedChain("<=", func(a, b float64) bool { return a <= b }),
		"=":  equalChain("=", Equal),
		"!=": equalChain("!=", func(a, b Expr) bool { return !Equal(a, b) }),

		// strings
		"string-append": builtinStringAppend,
		"++":            builtinStringAppend,

		// lists
		"list":   builtinList,
		"car":    nth("car", 0),
		"cadr":   nth("cadr", 1),
		"caddr":  nth("caddr", 2),
		"cadddr": nth("cadddr", 3),
		"cdr":    builtinCdr,

		// I/O
		"display":   display(out, false),
		"displayln": display(out, true),
		"println":   display(out, true),
		"newline":   newline(out),

		"begin": builtinBegin,
	}
}

func numericArgs(args []Expr) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		n, err := a.AsNumber()
		if err != nil {
			return nil, err
		}
		nums[i] = n
	}
	return nums, nil
}

// reducer folds op over all arguments left to right. The first error from op
// stops the fold.
func reducer(name string, op func(a, b float64) (float64, error)) Builtin {
	return func(args []Expr) (Expr, error) {
		nums, err := numericArgs(args)
		if err != nil {
			return Expr{}, err
		}
		if len(nums) == 0 {
			return Expr{}, invalidArgsLen(name, "at least 1 arg", 0)
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			acc, err = op(acc, n)
			if err != nil {
				return Expr{}, err
			}
		}
		return Number(acc), nil
	}
}

func divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, &Error{Kind: DivideByZero, Msg: fmt.Sprintf("%s / 0", Number(a))}
	}
	return a / b, nil
}

// builtinSub negates a single argument, otherwise subtracts the sum of the
// rest from the first.
func builtinSub(args []Expr) (Expr, error) {
	nums, err := numericArgs(args)
	if err != nil {
		return Expr{}, err
	}
	switch len(nums) {
	case 0:
		return Expr{}, invalidArgsLen("-", "at least 1 arg", 0)
	case 1:
		return Number(-nums[0]), nil
	}
	var rest float64
	for _, n := range nums[1:] {
		rest += n
	}
	return Number(nums[0] - rest), nil
}

// orderedChain holds iff rel holds for every adjacent pair.
func orderedChain(name string, rel func(a, b float64) bool) Builtin {
	return func(args []Expr) (Expr, error) {
		if len(args) < 2 {
			return Expr{}, invalidArgsLen(name, "at least 2 args", len(args))
		}
		nums, err := numericArgs(args)
		if err != nil {
			return Expr{}, err
		}
		for i := 1; i < len(nums); i++ {
			if !rel(nums[i-1], nums[i]) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	}
}

func equalChain(name string, rel func(a, b Expr) bool) Builtin {
	return func(args []Expr) (Expr, error) {
		if len(args) < 2 {
			return Expr{}, invalidArgsLen(name, "at least 2 args", len(args))
		}
		for i := 1; i < len(args); i++ {
			if !rel(args[i-1], args[i]) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	}
}

func builtinStringAppend(args []Expr) (Expr, error) {
	var buf strings.Builder
	for _, a := range args {
		if a.Kind != KindString {
			return Expr{}, otherf("expected a string, found %s", a.KindName())
		}
		buf.WriteString(a.Str)
	}
	return String(buf.String()), nil
}

func builtinList(args []Expr) (Expr, error) {
	elems := make([]Expr, len(args))
	copy(elems, args)
	return Quote(Application(elems...)), nil
}

// quotedElems unwraps the single quoted-list argument of a list accessor.
func quotedElems(name string, args []Expr) ([]Expr, error) {
	if len(args) != 1 {
		return nil, invalidArgsLen(name, "1 arg", len(args))
	}
	inner, err := args[0].AsQuoted()
	if err != nil {
		return nil, err
	}
	if inner.Kind != KindApplication {
		return nil, &Error{Kind: InvalidArgsLen, Msg: fmt.Sprintf("%s: %s is not a list", name, inner)}
	}
	return inner.List, nil
}

func nth(name string, idx int) Builtin {
	return func(args []Expr) (Expr, error) {
		elems, err := quotedElems(name, args)
		if err != nil {
			return Expr{}, err
		}
		if idx >= len(elems) {
			return Expr{}, &Error{Kind: InvalidArgsLen, Msg: fmt.Sprintf("%s: index %d out of range for list of length %d", name, idx, len(elems))}
		}
		return elems[idx], nil
	}
}

func builtinCdr(args []Expr) (Expr, error) {
	elems, err := quotedElems("cdr", args)
	if err != nil {
		return Expr{}, err
	}
	if len(elems) == 0 {
		return Expr{}, &Error{Kind: InvalidArgsLen, Msg: "cdr: empty list"}
	}
	rest := make([]Expr, len(elems)-1)
	copy(rest, elems[1:])
	return Quote(Application(rest...)), nil
}

func display(out io.Writer, ln bool) Builtin {
	return func(args []Expr) (Expr, error) {
		for _, a := range args {
			fmt.Fprint(out, a.Display())
		}
		if ln {
			fmt.Fprintln(out)
		}
		return Nil(), nil
	}
}

func newline(out io.Writer) Builtin {
	return func(args []Expr) (Expr, error) {
		if len(args) != 0 {
			return Expr{}, invalidArgsLen("newline", "0 args", len(args))
		}
		fmt.Fprintln(out)
		return Nil(), nil
	}
}

func builtinBegin(args []Expr) (Expr, error) {
	if len(args) == 0 {
		return Expr{}, invalidArgsLen("begin", "at least 1 arg", 0)
	}
	return args[len(args)-1], nil
}
