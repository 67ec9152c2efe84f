package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/driver"
	"madola/interpreter-go/pkg/interpreter"
	"madola/interpreter-go/pkg/logging"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type runFlags struct {
	logLevel    string
	logJSON     string
	resultJSON  string
	stopOnEntry bool
	listen      string
	breaks      stringList
}

func (c *cli) parseFlags(name string, args []string, debug bool) (*runFlags, []string, error) {
	f := &runFlags{}
	fs := flag.NewFlagSet("madola "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.StringVar(&f.logJSON, "log-json", "", "append JSON log records to `file`")
	fs.StringVar(&f.resultJSON, "result-json", "", "write the run result to `file`")
	if debug {
		fs.BoolVar(&f.stopOnEntry, "stop-on-entry", false, "pause before the first statement")
		fs.StringVar(&f.listen, "listen", "", "serve the debugger to one websocket client on `addr`")
		fs.Var(&f.breaks, "break", "set a breakpoint before running (repeatable), e.g. --break '7 if x > 0'")
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 1 {
		return nil, nil, fmt.Errorf("madola %s: expected at most one program, got %d", name, fs.NArg())
	}
	return f, fs.Args(), nil
}

func (c *cli) newLogger(f *runFlags) (*logging.Logger, error) {
	level, err := logging.ParseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	logging.Level.Set(level)
	return logging.New(logging.Options{Terminal: c.stderr, JSONFile: f.logJSON})
}

// project is the program to run plus the manifest context it was found in.
type project struct {
	entry    string
	manifest *driver.Manifest
	lock     *driver.Lockfile
	env      driver.Environment
}

// resolveProject picks the entry file from args or, failing that, from the
// nearest manifest. A manifest is optional when a file is named.
func resolveProject(args []string) (*project, error) {
	p := &project{env: driver.EnvironmentFromOS()}
	start := ""
	if len(args) == 1 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		p.entry = abs
		start = filepath.Dir(abs)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = cwd
	}

	manifestPath, err := driver.FindManifest(start)
	switch {
	case errors.Is(err, driver.ErrManifestNotFound):
		if p.entry == "" {
			return nil, fmt.Errorf("a program file is required (%s not found)", driver.ManifestName)
		}
		return p, nil
	case err != nil:
		return nil, err
	}
	if p.manifest, err = driver.LoadManifest(manifestPath); err != nil {
		return nil, err
	}
	if p.entry == "" {
		if p.entry = p.manifest.EntryPath(); p.entry == "" {
			return nil, fmt.Errorf("%s has no entry; pass a program file", manifestPath)
		}
	}
	lock, err := driver.LoadLockfile(filepath.Join(p.manifest.Dir(), driver.LockfileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		p.lock = lock
	}
	return p, nil
}

func (p *project) newLoader(logger *logging.Logger) (*driver.Loader, error) {
	paths, err := driver.CollectSearchPaths(filepath.Dir(p.entry), p.manifest, p.lock, p.env)
	if err != nil {
		return nil, err
	}
	return driver.NewLoader(driver.LoaderOptions{SearchPaths: paths, Logger: logger.Logger})
}

// outputName names generated artifacts: the manifest's output, else the entry
// file's base name.
func (p *project) outputName() string {
	if p.manifest != nil && p.manifest.Output != "" {
		return p.manifest.Output
	}
	base := filepath.Base(p.entry)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// source returns program text for `list` when the entry is MADOLA source.
func (p *project) source() string {
	if filepath.Ext(p.entry) != ".mda" {
		return ""
	}
	data, err := os.ReadFile(p.entry)
	if err != nil {
		return ""
	}
	return string(data)
}

func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	return logging.WithRun(ctx, uuid.NewString()), stop
}

func (c *cli) runEntry(args []string) int {
	flags, rest, err := c.parseFlags("run", args, false)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	logger, err := c.newLogger(flags)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	defer logger.Close()

	proj, program, loader, ok := c.load(rest, logger)
	if !ok {
		return 1
	}
	ctx, stop := runContext()
	defer stop()

	interp := interpreter.NewWithOptions(interpreter.Options{
		Logger:     logger.Logger,
		Resolver:   loader,
		Stdout:     c.stdout,
		OutputName: proj.outputName(),
	})
	res := interp.Run(ctx, program)
	return c.finish(flags, res, true)
}

func (c *cli) load(args []string, logger *logging.Logger) (*project, *ast.Program, *driver.Loader, bool) {
	proj, err := resolveProject(args)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return nil, nil, nil, false
	}
	loader, err := proj.newLoader(logger)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return nil, nil, nil, false
	}
	program, err := loader.LoadProgram(proj.entry)
	if err != nil {
		if filepath.Ext(proj.entry) == ".mda" {
			fmt.Fprintln(c.stderr, "madola: .mda sources need a host-linked grammar; pass a serialized tree (.json or .yaml)")
		}
		fmt.Fprintln(c.stderr, err)
		return nil, nil, nil, false
	}
	return proj, program, loader, true
}

// finish writes the result file when requested and maps the run to an exit
// code. The debugger already reports errors on its own output.
func (c *cli) finish(flags *runFlags, res *interpreter.Result, report bool) int {
	if flags.resultJSON != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err == nil {
			err = os.WriteFile(flags.resultJSON, append(data, '\n'), 0o644)
		}
		if err != nil {
			fmt.Fprintf(c.stderr, "write result: %v\n", err)
			return 1
		}
	}
	if !res.Success {
		if report && !res.Terminated() {
			fmt.Fprintln(c.stderr, res.Error)
		}
		return 1
	}
	return 0
}
