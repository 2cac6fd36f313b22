package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// shell is the interactive form. It remembers the last borrower name so the
// "Your Borrowed Books" view can be refreshed after every action.
type shell struct {
	app         *app
	sc          *bufio.Scanner
	out         io.Writer
	interactive bool
	name        string
}

func (a *app) runShell(ctx context.Context, in io.Reader, out io.Writer) error {
	sh := &shell{
		app:         a,
		sc:          bufio.NewScanner(in),
		out:         out,
		interactive: isTerminal(in),
	}

	// Open up front so a broken catalog file is reported before any prompt.
	if _, err := a.catalog(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Library Management")
	sh.printHelp()
	if err := sh.refresh(ctx); err != nil {
		return err
	}

	for {
		sh.prompt("\n> ")
		if !sh.sc.Scan() {
			break
		}
		cmd := strings.ToLower(strings.TrimSpace(sh.sc.Text()))

		switch cmd {
		case "add":
			title, author, ok := sh.readBook()
			if !ok {
				return sh.sc.Err()
			}
			sh.act(ctx, func() (string, error) { return a.addBook(ctx, title, author) })
		case "remove":
			title, author, ok := sh.readBook()
			if !ok {
				return sh.sc.Err()
			}
			sh.act(ctx, func() (string, error) { return a.removeBook(ctx, title, author) })
		case "borrow", "issue":
			title, author, name, ok := sh.readLoan()
			if !ok {
				return sh.sc.Err()
			}
			sh.act(ctx, func() (string, error) { return a.issueBook(ctx, title, author, name) })
		case "return":
			title, author, name, ok := sh.readLoan()
			if !ok {
				return sh.sc.Err()
			}
			sh.act(ctx, func() (string, error) { return a.returnBook(ctx, title, author, name) })
		case "list":
			if err := sh.refresh(ctx); err != nil {
				fmt.Fprintln(sh.out, describe(err))
			}
		case "help":
			sh.printHelp()
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(out, "Unknown command. Type one of the available commands listed above.")
		}
	}
	return sh.sc.Err()
}

// act runs one action, reports its outcome and refreshes both lists after
// a success.
func (sh *shell) act(ctx context.Context, action func() (string, error)) {
	msg, err := action()
	if err != nil {
		fmt.Fprintln(sh.out, describe(err))
		return
	}
	fmt.Fprintln(sh.out, msg)
	if err := sh.refresh(ctx); err != nil {
		fmt.Fprintln(sh.out, describe(err))
	}
}

func (sh *shell) refresh(ctx context.Context) error {
	mgr, err := sh.app.catalog()
	if err != nil {
		return err
	}

	books, err := mgr.ListBooks(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "\nAll Books")
	renderBooks(sh.out, books)

	if sh.name == "" {
		return nil
	}
	borrowed, err := mgr.ListBorrowed(ctx, sh.name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "\nYour Borrowed Books (%s)\n", sh.name)
	renderBorrowed(sh.out, borrowed)
	return nil
}

func (sh *shell) readBook() (title, author string, ok bool) {
	if title, ok = sh.field("Title: "); !ok {
		return "", "", false
	}
	if author, ok = sh.field("Author: "); !ok {
		return "", "", false
	}
	return title, author, true
}

func (sh *shell) readLoan() (title, author, name string, ok bool) {
	if title, author, ok = sh.readBook(); !ok {
		return "", "", "", false
	}
	if name, ok = sh.field("Your Name: "); !ok {
		return "", "", "", false
	}
	if name != "" {
		sh.name = name
	}
	return title, author, name, true
}

func (sh *shell) field(label string) (string, bool) {
	sh.prompt(label)
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

func (sh *shell) prompt(s string) {
	if sh.interactive {
		fmt.Fprint(sh.out, s)
	}
}

func (sh *shell) printHelp() {
	fmt.Fprintln(sh.out, "Available commands:")
	fmt.Fprintln(sh.out, "  Books: add, remove, list")
	fmt.Fprintln(sh.out, "  Circulation: borrow, return")
	fmt.Fprintln(sh.out, "  System: help, exit")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
