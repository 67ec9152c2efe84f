package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"madola/interpreter-go/pkg/debugger"
	"madola/interpreter-go/pkg/interpreter"
)

func (c *cli) runDebug(args []string) int {
	flags, rest, err := c.parseFlags("debug", args, true)
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

	var (
		commands debugger.CommandSource
		output   io.Writer = c.stdout
		stdout   io.Writer = c.stdout
		remote   *wsSession
	)
	if flags.listen != "" {
		ln, err := listenDebug(flags.listen)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		fmt.Fprintf(c.stderr, "debugger waiting on ws://%s%s\n", ln.Addr(), debugPath)
		remote, err = acceptDebugClient(ctx, ln, logger.Logger)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		defer remote.Close()
		commands, output, stdout = remote, remote.stream("output"), remote.stream("print")
	} else {
		commands = debugger.NewLineSource(c.stdin, c.stdout)
	}

	interp := interpreter.NewWithOptions(interpreter.Options{
		Logger:     logger.Logger,
		Resolver:   loader,
		Stdout:     stdout,
		OutputName: proj.outputName(),
	})
	d := debugger.New(debugger.Options{
		Interpreter: interp,
		Commands:    commands,
		Output:      output,
		Logger:      logger.Logger,
		Source:      proj.source(),
		StopOnEntry: flags.stopOnEntry,
	})
	d.Load(program)
	if remote != nil {
		d.AddListener(remote)
	}
	for _, spec := range flags.breaks {
		if err := d.Command("break " + spec); err != nil {
			fmt.Fprintf(c.stderr, "break %s: %v\n", spec, err)
			return 1
		}
	}
	res := d.Run(ctx, nil)
	return c.finish(flags, res, false)
}
