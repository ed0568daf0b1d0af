package lisp

import (
	"context"
	"errors"
)

// Trace captures one evaluated top-level form: its source text, the printed
// result or error, and the debug binding it was stored under, if any.
type Trace struct {
	Source    string
	Result    string
	Error     string
	ErrorKind string
	Binding   string // e.g. "$3"; empty unless debug mode bound the result
	Timestamp string // RFC 3339
}

// Recorder receives every trace a Session produces.
type Recorder interface {
	Record(ctx context.Context, t Trace) error
}

// HistoryClearer is implemented by recorders that can drop what they stored.
type HistoryClearer interface {
	Clear(ctx context.Context) error
}

func (t *Trace) setError(err error) {
	t.Error = err.Error()
	var le *Error
	if errors.As(err, &le) {
		t.ErrorKind = le.Kind.String()
	}
}

// ToGo converts a Trace to a JSON-ready map.
func (t *Trace) ToGo() map[string]any {
	m := map[string]any{
		"source":    t.Source,
		"timestamp": t.Timestamp,
		"result":    nil,
		"error":     nil,
	}
	if t.Error != "" {
		m["error"] = t.Error
		m["kind"] = t.ErrorKind
	} else {
		m["result"] = t.Result
	}
	if t.Binding != "" {
		m["binding"] = t.Binding
	}
	return m
}
