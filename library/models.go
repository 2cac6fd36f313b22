package library

import (
	"fmt"
	"strings"
)

// State is the availability half of a book's status.
type State string

const (
	StateAvailable State = "available"
	StateIssued    State = "issued"
)

const issuedPrefix = "Issued to "

// Status is either Available or Issued to exactly one borrower.
type Status struct {
	State    State  `json:"state"`
	Borrower string `json:"borrower,omitempty"`
}

// Available returns the status of a book on the shelf.
func Available() Status { return Status{State: StateAvailable} }

// IssuedTo returns the status of a book lent to borrower.
func IssuedTo(borrower string) Status {
	return Status{State: StateIssued, Borrower: borrower}
}

func (s Status) IsAvailable() bool { return s.State == StateAvailable }

// String renders the status the way it is shown to users:
// "Available" or "Issued to <borrower>".
func (s Status) String() string {
	if s.State == StateIssued {
		return issuedPrefix + s.Borrower
	}
	return "Available"
}

// ParseStatus reads the user-facing form produced by String. It also
// accepts the legacy values stored by older catalog files.
func ParseStatus(raw string) (Status, error) {
	switch {
	case strings.EqualFold(raw, "Available"):
		return Available(), nil
	case strings.HasPrefix(raw, issuedPrefix):
		return IssuedTo(strings.TrimPrefix(raw, issuedPrefix)), nil
	default:
		return Status{}, fmt.Errorf("unknown status %q", raw)
	}
}

// Book is one record in the catalog. There is no notion of copies: two
// books with the same title and author are independent records.
type Book struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Status Status `json:"status"`
}

// Filter narrows SearchBooks. Zero values match everything.
type Filter struct {
	State    State
	Borrower string
	// Query is matched case-insensitively against title and author.
	Query string
}

// bookRow is the storage shape of a Book.
type bookRow struct {
	ID       int64   `db:"id"`
	Title    string  `db:"title"`
	Author   string  `db:"author"`
	Status   string  `db:"status"`
	Borrower *string `db:"borrower"`
}

func (r bookRow) toBook() *Book {
	b := &Book{ID: r.ID, Title: r.Title, Author: r.Author, Status: Available()}
	if State(r.Status) == StateIssued && r.Borrower != nil {
		b.Status = IssuedTo(*r.Borrower)
	}
	return b
}
