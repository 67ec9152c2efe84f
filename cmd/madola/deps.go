package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"madola/interpreter-go/pkg/driver"
)

func (c *cli) runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "madola deps: expected a subcommand (install)")
		return 1
	}
	switch args[0] {
	case "install":
		return c.runDepsInstall(args[1:])
	default:
		fmt.Fprintf(c.stderr, "madola deps: unknown subcommand %q\n", args[0])
		return 1
	}
}

func (c *cli) runDepsInstall(args []string) int {
	flags, rest, err := c.parseFlags("deps install", args, false)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	if len(rest) > 0 {
		fmt.Fprintln(c.stderr, "madola deps install does not take a program")
		return 1
	}
	logger, err := c.newLogger(flags)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	defer logger.Close()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	manifestPath, err := driver.FindManifest(cwd)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	lockPath := filepath.Join(manifest.Dir(), driver.LockfileName)
	lock, err := driver.LoadLockfile(lockPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	case err != nil:
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	ctx, stop := runContext()
	defer stop()
	env := driver.EnvironmentFromOS()
	changed, err := driver.NewInstaller(manifest, env.Home, logger.Logger).Install(ctx, lock)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	if changed {
		lock.Tool = cliToolVersion
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		fmt.Fprintf(c.stdout, "Wrote %s\n", driver.LockfileName)
	} else {
		fmt.Fprintln(c.stdout, "Dependencies up to date")
	}
	for _, pkg := range lock.Packages {
		fmt.Fprintf(c.stdout, "  %s %s\n", pkg.Name, pkg.Version)
	}
	return 0
}
