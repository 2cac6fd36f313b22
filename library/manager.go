package library

import (
	"context"
	"log/slog"
	"strings"
)

// LibraryManager is a thin façade over the Database, keeping CLI code simple.
// It trims and validates input before anything reaches the store.
type LibraryManager struct {
	db        *Database
	validator *requestValidator
	logger    *slog.Logger
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
// A nil logger discards log output.
func NewLibraryManager(dbPath string, logger *slog.Logger) (*LibraryManager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog opened", "path", dbPath)
	return &LibraryManager{db: db, validator: newRequestValidator(), logger: logger}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// ------------------ Lifecycle ------------------

// AddBook stores a new Available book.
func (lm *LibraryManager) AddBook(ctx context.Context, title, author string) (int64, error) {
	req := bookRequest{Title: clean(title), Author: clean(author)}
	if err := lm.validator.validate(req); err != nil {
		return 0, err
	}

	id, err := lm.db.AddBook(ctx, req.Title, req.Author)
	if err != nil {
		lm.logger.Error("add book failed", "title", req.Title, "author", req.Author, "error", err)
		return 0, err
	}
	lm.logger.Debug("book added", "id", id, "title", req.Title, "author", req.Author)
	return id, nil
}

// RemoveBook deletes an Available copy of the book. It reports false when
// the book does not exist or every copy is issued.
func (lm *LibraryManager) RemoveBook(ctx context.Context, title, author string) (bool, error) {
	req := bookRequest{Title: clean(title), Author: clean(author)}
	if err := lm.validator.validate(req); err != nil {
		return false, err
	}

	ok, err := lm.db.RemoveBook(ctx, req.Title, req.Author)
	return lm.outcome("remove", ok, err, "title", req.Title, "author", req.Author)
}

// ------------------ Circulation ------------------

// IssueBook lends an Available copy of the book to borrower.
func (lm *LibraryManager) IssueBook(ctx context.Context, title, author, borrower string) (bool, error) {
	req := loanRequest{Title: clean(title), Author: clean(author), Borrower: clean(borrower)}
	if err := lm.validator.validate(req); err != nil {
		return false, err
	}

	ok, err := lm.db.IssueBook(ctx, req.Title, req.Author, req.Borrower)
	return lm.outcome("issue", ok, err, "title", req.Title, "author", req.Author, "borrower", req.Borrower)
}

// ReturnBook takes back a copy of the book issued to borrower.
func (lm *LibraryManager) ReturnBook(ctx context.Context, title, author, borrower string) (bool, error) {
	req := loanRequest{Title: clean(title), Author: clean(author), Borrower: clean(borrower)}
	if err := lm.validator.validate(req); err != nil {
		return false, err
	}

	ok, err := lm.db.ReturnBook(ctx, req.Title, req.Author, req.Borrower)
	return lm.outcome("return", ok, err, "title", req.Title, "author", req.Author, "borrower", req.Borrower)
}

// ------------------ Listings ------------------

func (lm *LibraryManager) ListBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.ListBooks(ctx)
}

// ListBorrowed returns the books currently issued to borrower.
func (lm *LibraryManager) ListBorrowed(ctx context.Context, borrower string) ([]*Book, error) {
	req := borrowerRequest{Borrower: clean(borrower)}
	if err := lm.validator.validate(req); err != nil {
		return nil, err
	}
	return lm.db.ListBorrowed(ctx, req.Borrower)
}

func (lm *LibraryManager) SearchBooks(ctx context.Context, f Filter) ([]*Book, error) {
	f.Borrower = clean(f.Borrower)
	f.Query = clean(f.Query)
	return lm.db.SearchBooks(ctx, f)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

// ------------------ Utilities ------------------

func (lm *LibraryManager) outcome(op string, ok bool, err error, attrs ...any) (bool, error) {
	switch {
	case err != nil:
		lm.logger.Error(op+" failed", append(attrs, "error", err)...)
		return false, err
	case !ok:
		lm.logger.Info(op+" refused: no eligible book", attrs...)
	default:
		lm.logger.Debug(op+" succeeded", attrs...)
	}
	return ok, nil
}

func clean(s string) string { return strings.TrimSpace(s) }
