package lisp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
)

// Core serves a Session over a unix socket. A single actor goroutine owns the
// session, so evaluation and frame mutation are serialized across clients.
type Core struct {
	session  *Session
	logger   *log.Logger
	requests chan coreRequest
	done     chan struct{}
	listener net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown sync.Once
}

type coreRequest struct {
	msg      map[string]any
	response chan map[string]any
}

func newCore(session *Session, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Core{
		session:  session,
		logger:   logger,
		requests: make(chan coreRequest, 64),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// NewCore creates a core listening on sockPath.
func NewCore(sockPath string, session *Session, logger *log.Logger) (*Core, error) {
	// Clean up stale socket
	os.Remove(sockPath)

	c := newCore(session, logger)
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	c.listener = listener
	return c, nil
}

// Run starts the actor goroutine and accepts connections. Blocks until shutdown.
func (c *Core) Run() {
	go c.actorLoop()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		go c.handleClientConnection(conn)
	}
}

// Shutdown stops accepting connections, closes the open ones and stops the
// actor. Requests still in flight get a "shutting down" error. Safe to call
// more than once.
func (c *Core) Shutdown() {
	c.shutdown.Do(func() {
		close(c.done)
		if c.listener != nil {
			c.listener.Close()
		}
		c.mu.Lock()
		for conn := range c.conns {
			conn.Close()
		}
		c.mu.Unlock()
	})
}

// actorLoop is the single goroutine that owns session state.
func (c *Core) actorLoop() {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requests:
			if c.closing() {
				id, _ := req.msg["id"].(string)
				req.response <- errorResponse(id, "core is shutting down")
				continue
			}
			req.response <- c.handleRequest(req.msg)
		}
	}
}

// sendToActor sends a request to the core actor and waits for the response.
func (c *Core) sendToActor(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)
	resp := make(chan map[string]any, 1)
	select {
	case c.requests <- coreRequest{msg: msg, response: resp}:
	case <-c.done:
		return errorResponse(id, "core is shutting down")
	}
	select {
	case r := <-resp:
		return r
	case <-c.done:
		return errorResponse(id, "core is shutting down")
	}
}

func (c *Core) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Core) trackConn(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing() {
		return false
	}
	c.conns[conn] = struct{}{}
	return true
}

func (c *Core) untrackConn(conn net.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
}

func (c *Core) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	if op == "" {
		// No op: describe the protocol
		return c.coreManual(id)
	}

	switch op {
	case "eval":
		return c.handleEval(id, msg)
	case "define":
		return c.handleDefine(id, msg)
	case "undefine":
		return c.handleUndefine(id, msg)
	case "lookup":
		return c.handleLookup(id, msg)
	case "names":
		return c.handleNames(id)
	case "traces":
		return c.handleTraces(id, msg)
	case "debug":
		return c.handleDebug(id, msg)
	case "clear":
		return c.handleClear(id, msg)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (c *Core) coreManual(id string) map[string]any {
	var builtins []any
	for _, name := range c.session.Env().Names() {
		if v, ok := c.session.Env().Lookup(name); ok && v.Kind == KindBuiltin {
			builtins = append(builtins, name)
		}
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"ops": map[string]any{
				"eval":     `{"op": "eval", "src": "(+ 1 2)"} evaluates every form in src`,
				"define":   `{"op": "define", "name": "x", "src": "(* 6 7)"} binds name in the root frame; "value" binds a JSON value instead of src`,
				"undefine": `{"op": "undefine", "name": "x"} removes the nearest binding`,
				"lookup":   `{"op": "lookup", "name": "x"} returns the bound value`,
				"names":    `{"op": "names"} lists every bound name`,
				"traces":   `{"op": "traces", "n": 10} returns recent evaluations`,
				"debug":    `{"op": "debug", "on": true} binds each result as $0, $1, ...`,
				"clear":    `{"op": "clear", "history": true} resets the session; history also empties the stored transcript`,
			},
			"builtins": builtins,
			"forms":    []any{"if", "cond", "when", "define", "def", "lambda", "fn"},
		},
	}
}

func (c *Core) handleEval(id string, msg map[string]any) map[string]any {
	src, ok := msg["src"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'src' string")
	}
	results, err := c.session.EvalSource(context.Background(), src)
	if err != nil {
		return kindErrorResponse(id, err)
	}
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = resultToGo(r)
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func resultToGo(r Result) map[string]any {
	if r.Err != nil {
		m := map[string]any{"error": r.Err.Error()}
		var le *Error
		if errors.As(r.Err, &le) {
			m["kind"] = le.Kind.String()
		}
		return m
	}
	m := map[string]any{"result": r.Value.String()}
	if v, err := ExprToGo(r.Value); err == nil {
		m["value"] = v
	}
	return m
}

func (c *Core) handleDefine(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok || name == "" {
		return errorResponse(id, "define: missing 'name' string")
	}
	var val Expr
	if raw, ok := msg["value"]; ok {
		val = GoToExpr(raw)
	} else {
		src, ok := msg["src"].(string)
		if !ok {
			return errorResponse(id, "define: missing 'src' string or 'value'")
		}
		expr, err := ParseOne(src)
		if err != nil {
			return kindErrorResponse(id, err)
		}
		val, err = c.session.eval.Eval(expr, c.session.Env())
		if err != nil {
			return kindErrorResponse(id, err)
		}
	}
	c.session.Env().Define(name, val)
	return map[string]any{
		"id":    id,
		"ok":    true,
		"value": map[string]any{"name": name, "result": val.String()},
	}
}

func (c *Core) handleUndefine(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "undefine: missing 'name' string")
	}
	c.session.Env().Undefine(name)
	return map[string]any{"id": id, "ok": true, "value": name}
}

func (c *Core) handleLookup(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "lookup: missing 'name' string")
	}
	val, found := c.session.Env().Lookup(name)
	if !found {
		return kindErrorResponse(id, invalidSymbol(name))
	}
	return map[string]any{"id": id, "ok": true, "value": resultToGo(Result{Value: val})}
}

func (c *Core) handleNames(id string) map[string]any {
	names := c.session.Env().Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (c *Core) handleTraces(id string, msg map[string]any) map[string]any {
	n := 0
	if raw, ok := msg["n"].(float64); ok {
		if raw < 0 {
			return errorResponse(id, "traces: n must be non-negative")
		}
		n = int(raw)
	}
	traces := c.session.Traces(n)
	out := make([]any, len(traces))
	for i := range traces {
		out[i] = traces[i].ToGo()
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (c *Core) handleDebug(id string, msg map[string]any) map[string]any {
	on, ok := msg["on"].(bool)
	if !ok {
		on = !c.session.Debug()
	}
	c.session.SetDebug(on)
	return map[string]any{"id": id, "ok": true, "value": on}
}

func (c *Core) handleClear(id string, msg map[string]any) map[string]any {
	c.session.Reset()
	if history, _ := msg["history"].(bool); history {
		if err := c.session.ClearHistory(context.Background()); err != nil {
			return errorResponse(id, fmt.Sprintf("clear history: %v", err))
		}
	}
	return map[string]any{"id": id, "ok": true, "value": "cleared"}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

func kindErrorResponse(id string, err error) map[string]any {
	resp := errorResponse(id, err.Error())
	var le *Error
	if errors.As(err, &le) {
		resp["kind"] = le.Kind.String()
	}
	return resp
}

// --- Connection handling ---

func (c *Core) handleClientConnection(conn net.Conn) {
	defer conn.Close()
	if !c.trackConn(conn) {
		return
	}
	defer c.untrackConn(conn)

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF && !c.closing() {
				c.logger.Printf("read client message: %v", err)
			}
			return
		}

		resp := c.sendToActor(msg)
		if err := WriteMsg(conn, resp); err != nil {
			c.logger.Printf("write client response: %v", err)
			return
		}
	}
}
