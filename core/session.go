package lisp

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Session is a host driver: it owns a root environment and evaluates source
// text against it form by form, recording a Trace per form.
type Session struct {
	env       *Env
	eval      *Evaluator
	out       io.Writer
	logger    *log.Logger
	recorder  Recorder
	debug     bool
	nextDebug int
	traces    []Trace
	maxTraces int
}

type SessionOption func(*Session)

// WithOutput sets where display and friends write. Defaults to os.Stdout.
func WithOutput(w io.Writer) SessionOption {
	return func(s *Session) { s.out = w }
}

// WithMaxDepth bounds evaluation depth; zero leaves it unbounded.
func WithMaxDepth(n int) SessionOption {
	return func(s *Session) { s.eval.MaxDepth = n }
}

func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithDebug starts the session with debug bindings enabled.
func WithDebug(on bool) SessionOption {
	return func(s *Session) { s.debug = on }
}

func WithMaxTraces(n int) SessionOption {
	return func(s *Session) { s.maxTraces = n }
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		eval:      &Evaluator{},
		out:       os.Stdout,
		logger:    log.New(io.Discard, "", 0),
		maxTraces: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = NewRootEnv(s.out)
	return s
}

// Env returns the session's root frame.
func (s *Session) Env() *Env {
	return s.env
}

func (s *Session) Debug() bool {
	return s.debug
}

// SetDebug turns debug bindings on or off. While on, every successful
// top-level result is bound in the root frame as $0, $1, ...
func (s *Session) SetDebug(on bool) {
	s.debug = on
}

// Reset discards all definitions and traces.
func (s *Session) Reset() {
	s.env = NewRootEnv(s.out)
	s.nextDebug = 0
	s.traces = nil
}

// ClearHistory clears the recorder's stored transcript. It is a no-op when
// there is no recorder or it cannot be cleared.
func (s *Session) ClearHistory(ctx context.Context) error {
	if c, ok := s.recorder.(HistoryClearer); ok {
		return c.Clear(ctx)
	}
	return nil
}

// EvalSource parses src and evaluates each form in order. A parse failure is
// returned as the error and nothing is evaluated.
func (s *Session) EvalSource(ctx context.Context, src string) ([]Result, error) {
	forms, err := Parse(src)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(forms))
	for i, form := range forms {
		results[i] = s.evalForm(ctx, form)
	}
	return results, nil
}

func (s *Session) evalForm(ctx context.Context, form Expr) Result {
	res := s.eval.EvalAll([]Expr{form}, s.env)[0]

	t := Trace{
		Source:    form.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if res.Err != nil {
		t.setError(res.Err)
		s.logger.Printf("eval %s: %v", t.Source, res.Err)
	} else {
		t.Result = res.Value.String()
		if s.debug {
			t.Binding = fmt.Sprintf("$%d", s.nextDebug)
			s.nextDebug++
			s.env.Define(t.Binding, res.Value)
		}
	}
	s.appendTrace(t)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, t); err != nil {
			s.logger.Printf("record trace: %v", err)
		}
	}
	return res
}

// Traces returns up to the n most recent traces, oldest first. n <= 0 returns all.
func (s *Session) Traces(n int) []Trace {
	start := 0
	if n > 0 && n < len(s.traces) {
		start = len(s.traces) - n
	}
	out := make([]Trace, len(s.traces)-start)
	copy(out, s.traces[start:])
	return out
}

// appendTrace adds a trace and enforces the maxTraces cap.
func (s *Session) appendTrace(t Trace) {
	s.traces = append(s.traces, t)
	if s.maxTraces > 0 && len(s.traces) > s.maxTraces {
		excess := len(s.traces) - s.maxTraces
		s.traces = s.traces[excess:]
	}
}
