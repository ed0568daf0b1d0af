package lisp

import "fmt"

type ErrorKind int

const (
	ParseFailed ErrorKind = iota
	InvalidSymbol
	InvalidArgsLen
	TypeMismatch
	InvalidCondition
	DivideByZero
	RecursionLimitExceeded
	Other
)

func (k ErrorKind) String() string {
	switch k {
	case ParseFailed:
		return "ParseFailed"
	case InvalidSymbol:
		return "InvalidSymbol"
	case InvalidArgsLen:
		return "InvalidArgsLen"
	case TypeMismatch:
		return "TypeMismatch"
	case InvalidCondition:
		return "InvalidCondition"
	case DivideByZero:
		return "DivideByZero"
	case RecursionLimitExceeded:
		return "RecursionLimitExceeded"
	default:
		return "Other"
	}
}

// Error is the only error type the evaluator produces. It matches any other
// *Error of the same Kind under errors.Is, so callers compare against the
// Err* sentinels below.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrParseFailed            = &Error{Kind: ParseFailed}
	ErrInvalidSymbol          = &Error{Kind: InvalidSymbol}
	ErrInvalidArgsLen         = &Error{Kind: InvalidArgsLen}
	ErrTypeMismatch           = &Error{Kind: TypeMismatch}
	ErrInvalidCondition       = &Error{Kind: InvalidCondition}
	ErrDivideByZero           = &Error{Kind: DivideByZero}
	ErrRecursionLimitExceeded = &Error{Kind: RecursionLimitExceeded}
	ErrOther                  = &Error{Kind: Other}
)

func parseFailed(format string, args ...any) *Error {
	return &Error{Kind: ParseFailed, Msg: fmt.Sprintf(format, args...)}
}

func invalidSymbol(name string) *Error {
	return &Error{Kind: InvalidSymbol, Msg: name}
}

func invalidArgsLen(name string, want string, got int) *Error {
	return &Error{Kind: InvalidArgsLen, Msg: fmt.Sprintf("%s: expected %s, got %d", name, want, got)}
}

func typeMismatch(want, found Kind) *Error {
	return &Error{Kind: TypeMismatch, Msg: fmt.Sprintf("expect %s, found %s", want, found)}
}

func invalidCondition(form string, found Kind) *Error {
	return &Error{Kind: InvalidCondition, Msg: fmt.Sprintf("%s: condition must be Bool, found %s", form, found)}
}

func otherf(format string, args ...any) *Error {
	return &Error{Kind: Other, Msg: fmt.Sprintf(format, args...)}
}
