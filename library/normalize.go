package library

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldKey returns the lookup key for a title or author. Keys compare
// equal when the inputs differ only in case, including non-ASCII text
// that SQLite's lower() leaves alone.
func foldKey(s string) string {
	// A Caser carries state and is not safe for concurrent use.
	return cases.Fold().String(norm.NFC.String(s))
}
