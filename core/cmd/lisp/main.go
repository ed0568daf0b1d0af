package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jedsek/lisp/config"
	lisp "github.com/Jedsek/lisp/core"
	"github.com/Jedsek/lisp/history"
)

const (
	appName = "lisp"
	version = "0.0.1"
)

func main() {
	log.SetPrefix(appName + ": ")
	log.SetFlags(0)

	if len(os.Args) < 2 {
		os.Exit(cmdRepl(nil))
	}

	cmd := os.Args[1]
	switch cmd {
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "serve":
		os.Exit(cmdServe(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:], os.Stdout, os.Stderr))
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Lisp %s

Usage:
  %s [repl] [-config file] [-debug]         Start the REPL.
  %s run [-config file] [-print] file...    Evaluate file(s) in order.
  %s serve [-config file] [-sock path]      Serve a session on a unix socket.
  %s config init [-config file] [-force]    Write the default config file.
  %s config show [-config file]             Print the effective config.
  %s version                                Print the version.

`, version, appName, appName, appName, appName, appName, appName)
}

// loadConfig parses the common flags of a subcommand and loads the config.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", config.DefaultPath(), "config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config.Load(*path)
}

// openRecorder opens the history database named in cfg, if any.
func openRecorder(cfg *config.Config) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func sessionOptions(cfg *config.Config, store *history.Store) []lisp.SessionOption {
	opts := []lisp.SessionOption{
		lisp.WithMaxDepth(cfg.MaxDepth),
		lisp.WithMaxTraces(cfg.MaxTraces),
		lisp.WithDebug(cfg.Debug),
	}
	if store != nil {
		opts = append(opts, lisp.WithRecorder(store))
	}
	return opts
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	printResults := fs.Bool("print", false, "print the value of every top-level form")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s run [-print] file...\n", appName)
		return 2
	}

	store, err := openRecorder(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	session := lisp.NewSession(sessionOptions(cfg, store)...)
	return runFiles(context.Background(), session, fs.Args(), *printResults, os.Stdout, os.Stderr)
}

// runFiles evaluates each file against session. Failing forms are reported
// and evaluation continues; the exit status is 1 if anything failed.
func runFiles(ctx context.Context, session *lisp.Session, paths []string, printResults bool, stdout, stderr io.Writer) int {
	status := 0
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			status = 1
			continue
		}
		results, err := session.EvalSource(ctx, string(src))
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			status = 1
			continue
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", path, r.Err)
				status = 1
				continue
			}
			if printResults {
				fmt.Fprintln(stdout, r.Value)
			}
		}
	}
	return status
}

// -----------------------------------------------------------------------------
// config
// -----------------------------------------------------------------------------

func cmdConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(stderr, "usage: %s config init|show [-config file]\n", appName)
		return 2
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("config init", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("config", config.DefaultPath(), "config file")
		force := fs.Bool("force", false, "overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := os.Stat(*path); err == nil && !*force {
			fmt.Fprintf(stderr, "%s already exists (use -force to overwrite)\n", *path)
			return 1
		}
		if err := config.Default().Write(*path); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", *path)
		return 0
	case "show":
		fs := flag.NewFlagSet("config show", flag.ContinueOnError)
		fs.SetOutput(stderr)
		cfg, err := loadConfig(fs, args[1:])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, string(out))
		return 0
	default:
		fmt.Fprintf(stderr, "%s config: unknown command %q\n", appName, args[0])
		return 2
	}
}

// -----------------------------------------------------------------------------
// serve
// -----------------------------------------------------------------------------

func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	sock := fs.String("sock", "", "socket path (overrides config)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *sock != "" {
		cfg.Socket = *sock
	}

	store, err := openRecorder(cfg)
	if err != nil {
		log.Printf("open history: %v", err)
		return 1
	}

	opts := append(sessionOptions(cfg, store), lisp.WithLogger(log.Default()))
	session := lisp.NewSession(opts...)
	core, err := lisp.NewCore(cfg.Socket, session, log.Default())
	if err != nil {
		log.Printf("failed to start core: %v", err)
		return 1
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		core.Shutdown()
		if store != nil {
			store.Close()
		}
		os.Exit(0)
	}()

	log.Printf("listening on %s", cfg.Socket)
	core.Run()
	return 0
}
