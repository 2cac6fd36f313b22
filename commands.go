package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "library",
		Short: "Track a small library's books: add, remove, issue and return",
		Long: `library keeps a catalog of books in a local SQLite file.

Run without a subcommand to open the interactive shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "catalog file (default $LIBRARY_DB_PATH or library.db)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default $LIBRARY_LOG_LEVEL or warn)")

	root.AddCommand(
		newAddCmd(a),
		newRemoveCmd(a),
		newIssueCmd(a),
		newReturnCmd(a),
		newListCmd(a),
		newBorrowedCmd(a),
		newShellCmd(a),
	)
	return root
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add TITLE AUTHOR",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.addBook(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove TITLE AUTHOR",
		Short: "Remove an available copy of a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.removeBook(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newIssueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "issue TITLE AUTHOR BORROWER",
		Aliases: []string{"borrow"},
		Short:   "Issue an available copy of a book to a borrower",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.issueBook(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return TITLE AUTHOR BORROWER",
		Short: "Return a book issued to a borrower",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.returnBook(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		available, issued bool
		asJSON            bool
		filter            library.Filter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books ordered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.catalog()
			if err != nil {
				return err
			}

			switch {
			case available:
				filter.State = library.StateAvailable
			case issued:
				filter.State = library.StateIssued
			}

			var books []*library.Book
			if filter == (library.Filter{}) {
				books, err = mgr.ListBooks(cmd.Context())
			} else {
				books, err = mgr.SearchBooks(cmd.Context(), filter)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeBooksJSON(cmd.OutOrStdout(), books)
			}
			renderBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "only books on the shelf")
	cmd.Flags().BoolVar(&issued, "issued", false, "only books currently issued")
	cmd.Flags().StringVar(&filter.Borrower, "borrower", "", "only books issued to this borrower")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "case-insensitive match on title or author")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.MarkFlagsMutuallyExclusive("available", "issued")
	return cmd
}

func newBorrowedCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "borrowed BORROWER",
		Short: "List the books issued to a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.catalog()
			if err != nil {
				return err
			}
			books, err := mgr.ListBorrowed(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeBorrowedJSON(cmd.OutOrStdout(), books)
			}
			renderBorrowed(cmd.OutOrStdout(), books)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive form: add, remove, borrow and return books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
