package main

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"library-catalog/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bookView is the JSON shape of a row in the full catalog listing.
type bookView struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Status   string `json:"status"`
	Borrower string `json:"borrower,omitempty"`
}

// borrowedView is the JSON shape of a row in a borrower's listing.
type borrowedView struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func renderBooks(w io.Writer, books []*library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	for _, b := range books {
		fmt.Fprintf(w, "%s by %s (%s)\n", b.Title, b.Author, b.Status)
	}
}

func renderBorrowed(w io.Writer, books []*library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No borrowed books.")
		return
	}
	for _, b := range books {
		fmt.Fprintf(w, "%s by %s\n", b.Title, b.Author)
	}
}

func writeBooksJSON(w io.Writer, books []*library.Book) error {
	views := make([]bookView, 0, len(books))
	for _, b := range books {
		views = append(views, bookView{
			ID:       b.ID,
			Title:    b.Title,
			Author:   b.Author,
			Status:   string(b.Status.State),
			Borrower: b.Status.Borrower,
		})
	}
	return writeJSON(w, views)
}

func writeBorrowedJSON(w io.Writer, books []*library.Book) error {
	views := make([]borrowedView, 0, len(books))
	for _, b := range books {
		views = append(views, borrowedView{Title: b.Title, Author: b.Author})
	}
	return writeJSON(w, views)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
