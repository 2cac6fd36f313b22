package main

import (
	"context"
	"fmt"
	"strings"
)

// Each action runs exactly one catalog operation and returns the message
// to show on success. A declined transition comes back as *refusedError.

func (a *app) addBook(ctx context.Context, title, author string) (string, error) {
	mgr, err := a.catalog()
	if err != nil {
		return "", err
	}
	if _, err := mgr.AddBook(ctx, title, author); err != nil {
		return "", err
	}
	return "Book added!", nil
}

func (a *app) removeBook(ctx context.Context, title, author string) (string, error) {
	mgr, err := a.catalog()
	if err != nil {
		return "", err
	}
	ok, err := mgr.RemoveBook(ctx, title, author)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &refusedError{msg: "Book not found or is currently issued."}
	}
	return "Book removed.", nil
}

func (a *app) issueBook(ctx context.Context, title, author, borrower string) (string, error) {
	mgr, err := a.catalog()
	if err != nil {
		return "", err
	}
	ok, err := mgr.IssueBook(ctx, title, author, borrower)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &refusedError{msg: "Book is not available."}
	}
	return fmt.Sprintf("%s borrowed by %s.", strings.TrimSpace(title), strings.TrimSpace(borrower)), nil
}

func (a *app) returnBook(ctx context.Context, title, author, borrower string) (string, error) {
	mgr, err := a.catalog()
	if err != nil {
		return "", err
	}
	ok, err := mgr.ReturnBook(ctx, title, author, borrower)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &refusedError{msg: "You haven't borrowed this book."}
	}
	return fmt.Sprintf("%s returned by %s.", strings.TrimSpace(title), strings.TrimSpace(borrower)), nil
}
