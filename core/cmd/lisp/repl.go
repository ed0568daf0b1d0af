package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	lisp "github.com/Jedsek/lisp/core"
)

const banner = `Lisp v0.0.1 :)
● type ":h" or ":help" for help
● ctrl-c cancels input, ctrl-d exits`

const helpText = `Lisp v0.0.1
● type ":h | :help" for this help
● type ":c | :clear" to clear the screen
● type ":d | :debug" to toggle binding each result as $0, $1, ...
● type ":clear-history" to empty the stored history database
● type ":e | :exit | :q | :quit" or ctrl-d to exit

Example code:

> (+ 1 2 3 4 5)
15

> (+ 1 2 3 4 5 (- (* 2 2 (/ 9 4.5))))
7

> (def a 1)
a
> (+ a 1)
2

> (if (< 1 2 3 4 5) "Yes" "No")
"Yes"
`

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "bind each result as $0, $1, ...")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *debug {
		cfg.Debug = true
	}

	store, err := openRecorder(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	if store != nil {
		defer store.Close()
	}
	session := lisp.NewSession(sessionOptions(cfg, store)...)

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetWordCompleter(completer(session))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	ctx := context.Background()
	if store != nil {
		lines, err := store.Lines(ctx, cfg.HistorySize)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
		}
		for _, line := range lines {
			ln.AppendHistory(line)
		}
	} else {
		loadHistory(ln, cfg.HistoryFile)
		defer saveHistory(ln, cfg.HistoryFile)
	}

	for {
		code, ok := readByParseProbe(ln, cfg.Prompt, cfg.ContinuationPrompt)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if exit := handleReplCommand(session, trimmed, os.Stdout); exit {
				break
			}
			continue
		}

		results, err := session.EvalSource(ctx, code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		for _, r := range results {
			reportResult(os.Stdout, os.Stderr, r)
		}
		fmt.Println()
	}

	fmt.Println("Aborted")
	return 0
}

// handleReplCommand runs a ':' command and reports whether the REPL should exit.
func handleReplCommand(session *lisp.Session, cmd string, out io.Writer) (exit bool) {
	switch strings.ToLower(cmd) {
	case ":e", ":exit", ":q", ":quit":
		return true
	case ":h", ":help":
		fmt.Fprint(out, helpText+"\n")
	case ":c", ":clear":
		fmt.Fprint(out, "\x1b[H\x1b[2J")
	case ":d", ":debug":
		session.SetDebug(!session.Debug())
		fmt.Fprintf(out, "debug enabled: %v now\n", session.Debug())
	case ":clear-history":
		if err := session.ClearHistory(context.Background()); err != nil {
			fmt.Fprintln(out, red(err.Error()))
			break
		}
		fmt.Fprintln(out, "history cleared")
	default:
		fmt.Fprintf(out, "unknown command %s. Type :help for help.\n", cmd)
	}
	return false
}

func reportResult(stdout, stderr io.Writer, r lisp.Result) {
	if r.Err != nil {
		fmt.Fprintln(stderr, red(r.Err.Error()))
		return
	}
	fmt.Fprintln(stdout, r.Value)
}

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

// readByParseProbe reads lines until they parse or fail for a reason other
// than ending early.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, perr := lisp.Parse(src); lisp.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

// completer completes the word under the cursor against every name bound
// in the session.
func completer(session *lisp.Session) liner.WordCompleter {
	return func(line string, pos int) (head string, completions []string, tail string) {
		runes := []rune(line)
		start := pos
		for start > 0 && !strings.ContainsRune("() {}'\"\t", runes[start-1]) {
			start--
		}
		head, word, tail := string(runes[:start]), string(runes[start:pos]), string(runes[pos:])
		if word == "" {
			return head, nil, tail
		}
		for _, name := range session.Env().Names() {
			if strings.HasPrefix(name, word) {
				completions = append(completions, name)
			}
		}
		return head, completions, tail
	}
}

func loadHistory(ln *liner.State, path string) {
	if path == "" {
		return
	}
	if f, err := os.Open(path); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
}

func saveHistory(ln *liner.State, path string) {
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}
