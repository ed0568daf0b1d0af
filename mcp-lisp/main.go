package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jedsek/lisp/config"
	lisp "github.com/Jedsek/lisp/core"
)

// bridge forwards MCP tool calls to a lisp server connection.
type bridge struct {
	conn   net.Conn
	connMu sync.Mutex
}

// send sends a request to the lisp server and returns the response.
func (b *bridge) send(req map[string]any) (map[string]any, error) {
	req["id"] = lisp.NextID()
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if err := lisp.WriteMsg(b.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := lisp.ReadMsg(b.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a server response into an MCP tool result.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// forward sends req and formats the reply, reporting transport failures as
// tool errors.
func (b *bridge) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := b.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (b *bridge) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := request.RequireString("src")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{"op": "eval", "src": src})
}

func (b *bridge) handleDefine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	src, err := request.RequireString("src")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{"op": "define", "name": name, "src": src})
}

func (b *bridge) handleUndefine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{"op": "undefine", "name": name})
}

func (b *bridge) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{"op": "lookup", "name": name})
}

func (b *bridge) handleNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "names"})
}

func (b *bridge) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", 0); n > 0 {
		req["n"] = n
	}
	return b.forward(req)
}

func (b *bridge) handleDebug(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "debug", "on": request.GetBool("on", true)})
}

func (b *bridge) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "clear", "history": request.GetBool("history", false)})
}

func newServer(b *bridge) *server.MCPServer {
	s := server.NewMCPServer(
		"lisp",
		"0.0.1",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("lisp_eval",
			mcp.WithDescription("Evaluate Lisp source. Every top-level form is evaluated in order; returns one result or error per form."),
			mcp.WithString("src",
				mcp.Required(),
				mcp.Description("Source text, e.g. (define (f x) (+ x 1)) (f 5)"),
			),
		),
		b.handleEval,
	)

	s.AddTool(
		mcp.NewTool("lisp_define",
			mcp.WithDescription("Evaluate an expression and bind the result to a name in the root frame."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Symbol name to define"),
			),
			mcp.WithString("src",
				mcp.Required(),
				mcp.Description("Expression whose value is bound"),
			),
		),
		b.handleDefine,
	)

	s.AddTool(
		mcp.NewTool("lisp_undefine",
			mcp.WithDescription("Remove the nearest binding of a name."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Symbol name to remove"),
			),
		),
		b.handleUndefine,
	)

	s.AddTool(
		mcp.NewTool("lisp_lookup",
			mcp.WithDescription("Return the value bound to a name."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Symbol name to look up"),
			),
		),
		b.handleLookup,
	)

	s.AddTool(
		mcp.NewTool("lisp_names",
			mcp.WithDescription("List every bound name, builtins included."),
		),
		b.handleNames,
	)

	s.AddTool(
		mcp.NewTool("lisp_traces",
			mcp.WithDescription("Return recent evaluations with their results or errors."),
			mcp.WithNumber("n",
				mcp.Description("How many traces to return; all if omitted"),
			),
		),
		b.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("lisp_debug",
			mcp.WithDescription("Turn debug bindings on or off. While on, each result is bound as $0, $1, ..."),
			mcp.WithBoolean("on",
				mcp.Description("Whether debug bindings are enabled"),
			),
		),
		b.handleDebug,
	)

	s.AddTool(
		mcp.NewTool("lisp_clear",
			mcp.WithDescription("Reset the session: drop all definitions and traces."),
			mcp.WithBoolean("history",
				mcp.Description("Also empty the server's stored history database"),
			),
		),
		b.handleClear,
	)

	return s
}

// socketPath resolves the server socket from the shared config file and
// LISP_SOCK, matching "lisp serve".
func socketPath() (string, error) {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}

func main() {
	sockPath, err := socketPath()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to lisp server: %s", sockPath)

	s := newServer(&bridge{conn: conn})
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
