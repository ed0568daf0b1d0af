package lisp

import "fmt"

// Evaluator evaluates expressions against an environment chain.
//
// MaxDepth bounds the nesting of Eval calls; exceeding it yields a
// RecursionLimitExceeded error. Zero means unbounded, in which case runaway
// recursion exhausts the goroutine stack.
type Evaluator struct {
	MaxDepth int
	depth    int
}

// Result is the outcome of evaluating one top-level form.
type Result struct {
	Value Expr
	Err   error
}

// EvalAll evaluates each form in order against env. A failing form does not
// stop later ones, and every form sees the definitions made before it.
func (ev *Evaluator) EvalAll(exprs []Expr, env *Env) []Result {
	results := make([]Result, len(exprs))
	for i, expr := range exprs {
		ev.depth = 0
		val, err := ev.Eval(expr, env)
		results[i] = Result{Value: val, Err: err}
	}
	return results
}

func (ev *Evaluator) Eval(expr Expr, env *Env) (Expr, error) {
	if ev.MaxDepth > 0 {
		ev.depth++
		defer func() { ev.depth-- }()
		if ev.depth > ev.MaxDepth {
			return Expr{}, &Error{Kind: RecursionLimitExceeded, Msg: fmt.Sprintf("depth %d exceeded", ev.MaxDepth)}
		}
	}

	switch expr.Kind {
	case KindSymbol:
		val, ok := env.Lookup(expr.Str)
		if !ok {
			return Expr{}, invalidSymbol(expr.Str)
		}
		return val, nil
	case KindApplication:
		return ev.evalApplication(expr.List, env)
	default:
		// Literals, quoted lists and function values evaluate to themselves.
		return expr, nil
	}
}

func (ev *Evaluator) evalApplication(list []Expr, env *Env) (Expr, error) {
	if len(list) == 0 {
		return Nil(), nil
	}

	head, args := list[0], list[1:]

	if head.Kind == KindSymbol {
		switch head.Str {
		case "if":
			return ev.evalIf(args, env)
		case "cond", "when":
			return ev.evalCond(head.Str, args, env)
		case "define", "def":
			return ev.evalDefine(head.Str, args, env)
		case "lambda", "fn":
			return ev.evalLambda(head.Str, args, env)
		}
	}

	fn, err := ev.Eval(head, env)
	if err != nil {
		return Expr{}, err
	}
	switch fn.Kind {
	case KindBuiltin:
		vals, err := ev.evalArgs(args, env)
		if err != nil {
			return Expr{}, err
		}
		return fn.Builtin.Fn(vals)
	case KindClosure:
		return ev.applyClosure(fn.Closure, args, env)
	}

	// A parenthesized non-function evaluates its head's value once more.
	if len(list) == 1 {
		return ev.Eval(fn, env)
	}
	return Expr{}, &Error{Kind: InvalidSymbol, Msg: fmt.Sprintf("%s is not callable", head)}
}

func (ev *Evaluator) evalArgs(args []Expr, env *Env) ([]Expr, error) {
	vals := make([]Expr, len(args))
	for i, a := range args {
		v, err := ev.Eval(a, env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// closureParams returns the parameter names of a closure, or a TypeMismatch
// if Params is not a symbol or a list of symbols.
func closureParams(params Expr) ([]string, error) {
	switch params.Kind {
	case KindSymbol:
		return []string{params.Str}, nil
	case KindApplication:
		names := make([]string, len(params.List))
		for i, p := range params.List {
			name, err := p.AsSymbol()
			if err != nil {
				return nil, err
			}
			names[i] = name
		}
		return names, nil
	default:
		return nil, typeMismatch(KindApplication, params.Kind)
	}
}

// applyClosure evaluates the arguments in the caller's env and the body in a
// fresh frame extending the closure's defining env.
func (ev *Evaluator) applyClosure(c *Closure, argExprs []Expr, env *Env) (Expr, error) {
	params, err := closureParams(c.Params)
	if err != nil {
		return Expr{}, err
	}
	if len(params) != len(argExprs) {
		return Expr{}, invalidArgsLen("lambda", fmt.Sprintf("%d args", len(params)), len(argExprs))
	}
	args, err := ev.evalArgs(argExprs, env)
	if err != nil {
		return Expr{}, err
	}

	parent := c.Env
	if parent == nil {
		parent = env
	}
	frame := parent.Extend()
	for i, name := range params {
		frame.Define(name, args[i])
	}
	return ev.Eval(c.Body, frame)
}

// --- Special forms ---

// evalIf: (if cond then else). Only the taken branch is evaluated.
func (ev *Evaluator) evalIf(args []Expr, env *Env) (Expr, error) {
	if len(args) != 3 {
		return Expr{}, invalidArgsLen("if", "3 args (cond then else)", len(args))
	}
	cond, err := ev.Eval(args[0], env)
	if err != nil {
		return Expr{}, err
	}
	if cond.Kind != KindBool {
		return Expr{}, invalidCondition("if", cond.Kind)
	}
	if cond.Bool {
		return ev.Eval(args[1], env)
	}
	return ev.Eval(args[2], env)
}

// evalCond: (cond (test result)... ). The first clause whose test is #t, or
// whose test is the symbol else, wins. With no match the final operand is
// evaluated as an expression.
func (ev *Evaluator) evalCond(form string, args []Expr, env *Env) (Expr, error) {
	if len(args) < 2 {
		return Expr{}, invalidArgsLen(form, "at least 2 clauses", len(args))
	}
	for _, clause := range args {
		if clause.Kind != KindApplication {
			return Expr{}, typeMismatch(KindApplication, clause.Kind)
		}
		if len(clause.List) != 2 {
			return Expr{}, invalidArgsLen(form+" clause", "(test result)", len(clause.List))
		}
		test, result := clause.List[0], clause.List[1]
		if test.Kind == KindSymbol && test.Str == "else" {
			return ev.Eval(result, env)
		}
		t, err := ev.Eval(test, env)
		if err != nil {
			return Expr{}, err
		}
		if t.Kind != KindBool {
			return Expr{}, invalidCondition(form, t.Kind)
		}
		if t.Bool {
			return ev.Eval(result, env)
		}
	}
	return ev.Eval(args[len(args)-1], env)
}

// evalDefine: (define name value) or (define (name params...) body). Binds in
// the current frame and returns the defined symbol.
func (ev *Evaluator) evalDefine(form string, args []Expr, env *Env) (Expr, error) {
	if len(args) != 2 {
		return Expr{}, invalidArgsLen(form, "2 args (target value)", len(args))
	}
	target, body := args[0], args[1]

	if target.Kind == KindApplication {
		if len(target.List) == 0 {
			return Expr{}, invalidArgsLen(form, "a function name", 0)
		}
		symbol := target.List[0]
		name, err := symbol.AsSymbol()
		if err != nil {
			return Expr{}, err
		}
		params := Application(append([]Expr(nil), target.List[1:]...)...)
		env.Define(name, NewClosure(params, body, env))
		return symbol, nil
	}

	name, err := target.AsSymbol()
	if err != nil {
		return Expr{}, err
	}
	val, err := ev.Eval(body, env)
	if err != nil {
		return Expr{}, err
	}
	env.Define(name, val)
	return target, nil
}

// evalLambda: (lambda params body). Neither operand is evaluated.
func (ev *Evaluator) evalLambda(form string, args []Expr, env *Env) (Expr, error) {
	if len(args) != 2 {
		return Expr{}, invalidArgsLen(form, "2 args (params body)", len(args))
	}
	return NewClosure(args[0], args[1], env), nil
}
