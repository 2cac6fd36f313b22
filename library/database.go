package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPath is where the catalog lives when no path is configured.
const DefaultPath = "library.db"

const bookColumns = `id, title, author, status, borrower`

// Database owns the SQLite connection holding the catalog.
type Database struct {
	db     *sqlx.DB
	tracer trace.Tracer

	addBookStmt      *sqlx.Stmt
	removeBookStmt   *sqlx.Stmt
	issueBookStmt    *sqlx.Stmt
	returnBookStmt   *sqlx.Stmt
	listBorrowedStmt *sqlx.Stmt
	getBookStmt      *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: every operation is serialized by construction.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{
		db:     db,
		tracer: otel.Tracer("library-catalog/library"),
	}
	if err := database.prepareStatements(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sqlx.Stmt{
		d.addBookStmt,
		d.removeBookStmt,
		d.issueBookStmt,
		d.returnBookStmt,
		d.listBorrowedStmt,
		d.getBookStmt,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 2

// migrations[i] upgrades the schema from version i to i+1.
var migrations = []func(context.Context, *sqlx.Tx) error{
	migrateCreateBooks,
	migrateSplitStatus,
}

func applyMigrations(ctx context.Context, db *sqlx.DB) error {
	// WAL keeps readers and the single writer from blocking each other.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current == 0 {
		// Catalog files written before versioning have a books table and no meta row.
		var legacy bool
		if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='books')`).Scan(&legacy); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if legacy {
			current = 1
		}
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for v := current; v < schemaVersion; v++ {
		if err := migrations[v](ctx, tx); err != nil {
			return fmt.Errorf("apply migration %d: %w", v+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

func migrateCreateBooks(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available'
        );`)
	return err
}

// migrateSplitStatus moves the borrower out of the "Issued to <name>"
// status string into its own column and adds the case-folded lookup keys.
func migrateSplitStatus(ctx context.Context, tx *sqlx.Tx) error {
	stmts := []string{
		`ALTER TABLE books ADD COLUMN borrower TEXT;`,
		`ALTER TABLE books ADD COLUMN title_key TEXT NOT NULL DEFAULT '';`,
		`ALTER TABLE books ADD COLUMN author_key TEXT NOT NULL DEFAULT '';`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	var rows []bookRow
	if err := tx.SelectContext(ctx, &rows, `SELECT `+bookColumns+` FROM books ORDER BY id`); err != nil {
		return err
	}
	for _, r := range rows {
		status, err := ParseStatus(r.Status)
		if err != nil {
			return fmt.Errorf("book %d: %w", r.ID, err)
		}
		var borrower *string
		if status.State == StateIssued {
			borrower = &status.Borrower
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET status=?, borrower=?, title_key=?, author_key=? WHERE id=?`,
			string(status.State), borrower, foldKey(r.Title), foldKey(r.Author), r.ID,
		); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_books_lookup ON books(title_key, author_key, status);`,
		`CREATE INDEX IF NOT EXISTS idx_books_borrower ON books(borrower);`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements(ctx context.Context) error {
	var err error
	if d.addBookStmt, err = d.db.PreparexContext(ctx,
		`INSERT INTO books(title, author, status, title_key, author_key) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	// The LIMIT 1 sub-selects pick one eligible record when several share
	// a title and author; which one is left to SQLite.
	if d.removeBookStmt, err = d.db.PreparexContext(ctx,
		`DELETE FROM books WHERE id = (
            SELECT id FROM books WHERE title_key=? AND author_key=? AND status=? LIMIT 1)`); err != nil {
		return err
	}
	if d.issueBookStmt, err = d.db.PreparexContext(ctx,
		`UPDATE books SET status=?, borrower=? WHERE id = (
            SELECT id FROM books WHERE title_key=? AND author_key=? AND status=? LIMIT 1)`); err != nil {
		return err
	}
	if d.returnBookStmt, err = d.db.PreparexContext(ctx,
		`UPDATE books SET status=?, borrower=NULL WHERE id = (
            SELECT id FROM books WHERE title_key=? AND author_key=? AND status=? AND borrower=? LIMIT 1)`); err != nil {
		return err
	}
	if d.listBorrowedStmt, err = d.db.PreparexContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE status=? AND borrower=? ORDER BY id`); err != nil {
		return err
	}
	if d.getBookStmt, err = d.db.PreparexContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog operations
// ---------------------------------------------------------------------------

// AddBook inserts a new Available record and returns its id.
func (d *Database) AddBook(ctx context.Context, title, author string) (id int64, err error) {
	ctx, span := d.startSpan(ctx, "library.add_book",
		attribute.String("book.title", title),
		attribute.String("book.author", author))
	defer func() { endSpan(span, err) }()

	res, err := d.addBookStmt.ExecContext(ctx, title, author, string(StateAvailable), foldKey(title), foldKey(author))
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

// RemoveBook deletes one Available record matching title and author.
// It reports false when no such record exists, which includes the case
// where every match is currently issued.
func (d *Database) RemoveBook(ctx context.Context, title, author string) (removed bool, err error) {
	ctx, span := d.startSpan(ctx, "library.remove_book",
		attribute.String("book.title", title),
		attribute.String("book.author", author))
	defer func() { endSpan(span, err) }()

	res, err := d.removeBookStmt.ExecContext(ctx, foldKey(title), foldKey(author), string(StateAvailable))
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	return affectedOne(res)
}

// IssueBook lends one Available record matching title and author to borrower.
func (d *Database) IssueBook(ctx context.Context, title, author, borrower string) (issued bool, err error) {
	ctx, span := d.startSpan(ctx, "library.issue_book",
		attribute.String("book.title", title),
		attribute.String("book.author", author),
		attribute.String("book.borrower", borrower))
	defer func() { endSpan(span, err) }()

	res, err := d.issueBookStmt.ExecContext(ctx,
		string(StateIssued), borrower,
		foldKey(title), foldKey(author), string(StateAvailable))
	if err != nil {
		return false, fmt.Errorf("issue book: %w", err)
	}
	return affectedOne(res)
}

// ReturnBook puts back one record matching title and author that is issued
// to exactly this borrower. A book issued to someone else is not touched.
func (d *Database) ReturnBook(ctx context.Context, title, author, borrower string) (returned bool, err error) {
	ctx, span := d.startSpan(ctx, "library.return_book",
		attribute.String("book.title", title),
		attribute.String("book.author", author),
		attribute.String("book.borrower", borrower))
	defer func() { endSpan(span, err) }()

	res, err := d.returnBookStmt.ExecContext(ctx,
		string(StateAvailable),
		foldKey(title), foldKey(author), string(StateIssued), borrower)
	if err != nil {
		return false, fmt.Errorf("return book: %w", err)
	}
	return affectedOne(res)
}

// ListBooks returns every record ordered by title.
func (d *Database) ListBooks(ctx context.Context) ([]*Book, error) {
	return d.SearchBooks(ctx, Filter{})
}

// ListBorrowed returns the records issued to borrower in storage order.
func (d *Database) ListBorrowed(ctx context.Context, borrower string) (books []*Book, err error) {
	ctx, span := d.startSpan(ctx, "library.list_borrowed",
		attribute.String("book.borrower", borrower))
	defer func() { endSpan(span, err) }()

	var rows []bookRow
	if err := d.listBorrowedStmt.SelectContext(ctx, &rows, string(StateIssued), borrower); err != nil {
		return nil, fmt.Errorf("list borrowed: %w", err)
	}
	return toBooks(rows), nil
}

// GetBook fetches a single record by id.
func (d *Database) GetBook(ctx context.Context, id int64) (book *Book, err error) {
	ctx, span := d.startSpan(ctx, "library.get_book", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	var row bookRow
	if err := d.getBookStmt.GetContext(ctx, &row, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return row.toBook(), nil
}

// SearchBooks lists the records matching f, ordered by title.
func (d *Database) SearchBooks(ctx context.Context, f Filter) (books []*Book, err error) {
	ctx, span := d.startSpan(ctx, "library.search_books",
		attribute.String("filter.state", string(f.State)),
		attribute.String("filter.query", f.Query))
	defer func() { endSpan(span, err) }()

	query, args, err := buildSearchQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	var rows []bookRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return toBooks(rows), nil
}

func buildSearchQuery(f Filter) (string, []any, error) {
	ds := goqu.Dialect("sqlite3").
		From("books").
		Prepared(true).
		Select("id", "title", "author", "status", "borrower")

	if f.State != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.State)))
	}
	if f.Borrower != "" {
		ds = ds.Where(goqu.C("borrower").Eq(f.Borrower))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		key := foldKey(q)
		ds = ds.Where(goqu.Or(
			goqu.L("instr(title_key, ?) > 0", key),
			goqu.L("instr(author_key, ?) > 0", key),
		))
	}

	return ds.Order(goqu.C("title").Asc(), goqu.C("id").Asc()).ToSQL()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func toBooks(rows []bookRow) []*Book {
	books := make([]*Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.toBook())
	}
	return books
}

func (d *Database) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
