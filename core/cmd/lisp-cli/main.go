package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/Jedsek/lisp/config"
	lisp "github.com/Jedsek/lisp/core"
)

// buildRequest turns command-line arguments into a server request.
func buildRequest(args []string) (map[string]any, error) {
	op := args[0]
	rest := args[1:]
	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s: expected %d argument(s), got %d", op, n, len(rest))
		}
		return nil
	}

	switch op {
	case "eval":
		if err := need(1); err != nil {
			return nil, err
		}
		return map[string]any{"op": op, "src": rest[0]}, nil
	case "define":
		if err := need(2); err != nil {
			return nil, err
		}
		return map[string]any{"op": op, "name": rest[0], "src": rest[1]}, nil
	case "undefine", "lookup":
		if err := need(1); err != nil {
			return nil, err
		}
		return map[string]any{"op": op, "name": rest[0]}, nil
	case "names", "manual":
		if err := need(0); err != nil {
			return nil, err
		}
		if op == "manual" {
			return map[string]any{}, nil
		}
		return map[string]any{"op": op}, nil
	case "clear":
		msg := map[string]any{"op": op}
		switch {
		case len(rest) == 0:
		case len(rest) == 1 && rest[0] == "history":
			msg["history"] = true
		default:
			return nil, fmt.Errorf("clear: expected no argument or \"history\"")
		}
		return msg, nil
	case "traces":
		msg := map[string]any{"op": op}
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return nil, fmt.Errorf("traces: %w", err)
			}
			msg["n"] = n
		}
		return msg, nil
	case "debug":
		msg := map[string]any{"op": op}
		if len(rest) > 0 {
			on, err := strconv.ParseBool(rest[0])
			if err != nil {
				return nil, fmt.Errorf("debug: %w", err)
			}
			msg["on"] = on
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
}

// parseRequest decodes a request given as JSON on stdin.
func parseRequest(data []byte) (map[string]any, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("request must be a JSON object")
	}
	return msg, nil
}

// socketPath resolves the server socket the same way "lisp serve" does:
// config file, then LISP_SOCK.
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
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var msg map[string]any
	if len(os.Args) > 1 {
		msg, err = buildRequest(os.Args[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
	} else {
		// Read JSON from stdin
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
		msg, err = parseRequest(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
			os.Exit(1)
		}
	}

	// Add id if missing
	if _, ok := msg["id"]; !ok {
		msg["id"] = lisp.NextID()
	}

	// Connect to core
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Send request
	if err := lisp.WriteMsg(conn, msg); err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(1)
	}

	// Read response
	resp, err := lisp.ReadMsg(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "receive: %v\n", err)
		os.Exit(1)
	}

	// Print response
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "format response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if ok, _ := resp["ok"].(bool); !ok {
		os.Exit(1)
	}
}
