package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"library-catalog/internal/logger"
	"library-catalog/library"
)

// manifestEntry is one book in the import manifest.
type manifestEntry struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

type importOptions struct {
	dbPath   string
	manifest string
	reset    bool
}

func main() {
	if err := newImportCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	opts := importOptions{}

	cmd := &cobra.Command{
		Use:           "import_books",
		Short:         "Load a JSON manifest of books into the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", library.DefaultPath, "catalog file")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "books.json", `JSON array of {"title": ..., "author": ...}`)
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "delete the existing catalog before importing")
	return cmd
}

func runImport(ctx context.Context, opts importOptions, out io.Writer) error {
	entries, err := readManifest(opts.manifest)
	if err != nil {
		return err
	}

	if opts.reset {
		fmt.Fprintln(out, "Cleaning up existing database files...")
		for _, file := range []string{opts.dbPath, opts.dbPath + "-shm", opts.dbPath + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", file, err)
			}
		}
	}

	log := logger.New(logger.Config{Level: logger.ParseLevel("warn")})
	manager, err := library.NewLibraryManager(opts.dbPath, log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer manager.Close()

	fmt.Fprintf(out, "Importing %d books from %s...\n", len(entries), opts.manifest)

	successCount := 0
	errorCount := 0
	for i, e := range entries {
		fmt.Fprintf(out, "Importing: %s by %s... ", e.Title, e.Author)

		id, err := manager.AddBook(ctx, e.Title, e.Author)
		if err != nil {
			fmt.Fprintf(out, "ERROR (entry %d) - %v\n", i+1, err)
			errorCount++
			continue
		}

		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount == 0 {
		return nil
	}

	books, err := manager.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	fmt.Fprintln(out, "\nCatalog:")
	fmt.Fprintf(out, "%-5s %-50s %-30s %s\n", "ID", "Title", "Author", "Status")
	for _, b := range books {
		fmt.Fprintf(out, "%-5d %-50s %-30s %s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30), b.Status)
	}
	return nil
}

func readManifest(path string) ([]manifestEntry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var entries []manifestEntry
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return entries, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
