package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"library-catalog/internal/config"
	"library-catalog/internal/logger"
	"library-catalog/library"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation of the library command and returns the
// process exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(context.Background())
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return 0
	}
	fmt.Fprintln(errOut, describe(err))
	return 1
}

// app holds the catalog handle for the lifetime of one command. The handle
// is opened on first use so that help output never touches the catalog file.
type app struct {
	dbPath   string
	logLevel string
	errOut   io.Writer

	mgr *library.LibraryManager
}

func (a *app) catalog() (*library.LibraryManager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	log := logger.New(logger.Config{
		Writer: a.errOut,
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})

	mgr, err := library.NewLibraryManager(cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", cfg.DBPath, err)
	}
	a.mgr = mgr
	return mgr, nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// refusedError is a transition the catalog declined, such as issuing a
// book with no available copy.
type refusedError struct {
	msg string
}

func (e *refusedError) Error() string { return e.msg }

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var refused *refusedError
	if errors.As(err, &refused) {
		return refused.msg
	}

	var invalid *library.ValidationError
	if errors.As(err, &invalid) {
		switch {
		case invalid.Missing("borrower"):
			return "Enter your name."
		case invalid.Missing("title"), invalid.Missing("author"):
			return "Enter both title and author."
		}
	}
	return "Error: " + err.Error()
}
