package main

import "fmt"

func (c *cli) printUsage() {
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  madola run [flags] [program.json|program.yaml|program.mda]")
	fmt.Fprintln(c.stderr, "  madola debug [flags] [--stop-on-entry] [--listen addr] [program]")
	fmt.Fprintln(c.stderr, "  madola deps install")
	fmt.Fprintln(c.stderr, "  madola version")
	fmt.Fprintln(c.stderr, "")
	fmt.Fprintln(c.stderr, "Without a program argument the entry of the nearest madola.yml is used.")
	fmt.Fprintln(c.stderr, "")
	fmt.Fprintln(c.stderr, "Flags:")
	fmt.Fprintln(c.stderr, "  --log-level debug|info|warn|error")
	fmt.Fprintln(c.stderr, "  --log-json <file>      append JSON log records to file")
	fmt.Fprintln(c.stderr, "  --result-json <file>   write the run result (output, files, plots) as JSON")
	fmt.Fprintln(c.stderr, "")
	fmt.Fprintln(c.stderr, "Environment:")
	fmt.Fprintln(c.stderr, "  MADOLA_HOME  dependency cache (default ~/.madola)")
	fmt.Fprintln(c.stderr, "  MADOLA_PATH  extra module search paths")
}
