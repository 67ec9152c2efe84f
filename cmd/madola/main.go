package main

import (
	"fmt"
	"io"
	"os"
)

const cliToolVersion = "madola-cli 0.1.0-dev"

// cli holds the process streams so commands can be driven from tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	return c.run(args)
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		c.printUsage()
		return 1
	}
	switch args[0] {
	case "--help", "-h", "help":
		c.printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(c.stdout, cliToolVersion)
		return 0
	case "run":
		return c.runEntry(args[1:])
	case "debug":
		return c.runDebug(args[1:])
	case "deps":
		return c.runDeps(args[1:])
	default:
		return c.runEntry(args)
	}
}
