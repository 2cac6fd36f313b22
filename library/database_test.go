package library

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type listed struct {
	Title, Author, Status string
}

func listAll(t *testing.T, db *Database) []listed {
	t.Helper()
	books, err := db.ListBooks(context.Background())
	require.NoError(t, err)
	out := make([]listed, 0, len(books))
	for _, b := range books {
		out = append(out, listed{b.Title, b.Author, b.Status.String()})
	}
	return out
}

func TestAddThenList(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	id, err := db.AddBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.Positive(t, id)

	assert.Equal(t, []listed{{"Dune", "Herbert", "Available"}}, listAll(t, db))
}

func TestListBooksOrderedByTitle(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	for _, title := range []string{"Neuromancer", "Dune", "Hyperion", "Dune"} {
		_, err := db.AddBook(ctx, title, "Someone")
		require.NoError(t, err)
	}

	books, err := db.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 4)

	titles := []string{books[0].Title, books[1].Title, books[2].Title, books[3].Title}
	assert.Equal(t, []string{"Dune", "Dune", "Hyperion", "Neuromancer"}, titles)
	assert.NotEqual(t, books[0].ID, books[1].ID, "identical adds create independent records")
}

func TestRemoveBook(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")

	ok, err := db.RemoveBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.RemoveBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.False(t, ok, "second remove should find nothing")
	assert.Empty(t, listAll(t, db))
}

func TestRemoveOnlyOneOfSeveralCopies(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")
	_, _ = db.AddBook(ctx, "Dune", "Herbert")

	ok, err := db.RemoveBook(ctx, "dune", "herbert")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, listAll(t, db), 1)
}

func TestRemoveIssuedBookFails(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")

	ok, err := db.IssueBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.RemoveBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []listed{{"Dune", "Herbert", "Issued to Alice"}}, listAll(t, db))
}

func TestIssueUntilNoCopiesLeft(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")

	ok, err := db.IssueBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IssueBook(ctx, "Dune", "Herbert", "Bob")
	require.NoError(t, err)
	assert.False(t, ok, "no available copy left")

	ok, err = db.ReturnBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.IssueBook(ctx, "Dune", "Herbert", "Bob")
	require.NoError(t, err)
	assert.True(t, ok, "returned copy can be issued again")
}

func TestIssueUnknownBookFails(t *testing.T) {
	db := tempDB(t)
	ok, err := db.IssueBook(context.Background(), "Missing", "Nobody", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReturnRequiresSameBorrower(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")
	_, _ = db.IssueBook(ctx, "Dune", "Herbert", "Alice")

	ok, err := db.ReturnBook(ctx, "Dune", "Herbert", "Bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []listed{{"Dune", "Herbert", "Issued to Alice"}}, listAll(t, db))

	ok, err = db.ReturnBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []listed{{"Dune", "Herbert", "Available"}}, listAll(t, db))
}

func TestReturnAvailableBookFails(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")

	ok, err := db.ReturnBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaseInsensitiveMatching(t *testing.T) {
	tests := []struct {
		name                  string
		title, author         string
		lookTitle, lookAuthor string
	}{
		{"ascii", "Dune", "Herbert", "dune", "HERBERT"},
		{"latin accents", "Ärger im Paradies", "Émile Zola", "ÄRGER IM PARADIES", "émile zola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tempDB(t)
			ctx := context.Background()
			_, err := db.AddBook(ctx, tt.title, tt.author)
			require.NoError(t, err)

			ok, err := db.IssueBook(ctx, tt.lookTitle, tt.lookAuthor, "Alice")
			require.NoError(t, err)
			assert.True(t, ok)

			books, err := db.ListBooks(ctx)
			require.NoError(t, err)
			require.Len(t, books, 1)
			assert.Equal(t, tt.title, books[0].Title, "original casing is stored")
			assert.Equal(t, tt.author, books[0].Author)
		})
	}
}

func TestBorrowerMatchIsExact(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")
	_, _ = db.IssueBook(ctx, "Dune", "Herbert", "Alice")

	books, err := db.ListBorrowed(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, books)

	ok, err := db.ReturnBook(ctx, "Dune", "Herbert", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListBorrowed(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Herbert")
	_, _ = db.AddBook(ctx, "Anathem", "Stephenson")
	_, _ = db.AddBook(ctx, "Solaris", "Lem")
	_, _ = db.IssueBook(ctx, "Dune", "Herbert", "Alice")
	_, _ = db.IssueBook(ctx, "Anathem", "Stephenson", "Alice")
	_, _ = db.IssueBook(ctx, "Solaris", "Lem", "Bob")

	books, err := db.ListBorrowed(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, books, 2)
	// Storage order, not title order.
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Anathem", books[1].Title)
	for _, b := range books {
		assert.Equal(t, IssuedTo("Alice"), b.Status)
	}

	books, err = db.ListBorrowed(ctx, "Carol")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestLendingScenario(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	_, err := db.AddBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.Equal(t, []listed{{"Dune", "Herbert", "Available"}}, listAll(t, db))

	ok, err := db.IssueBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	assert.True(t, ok)

	borrowed, err := db.ListBorrowed(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, "Dune", borrowed[0].Title)
	assert.Equal(t, "Herbert", borrowed[0].Author)

	ok, err = db.ReturnBook(ctx, "Dune", "Herbert", "Bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.ReturnBook(ctx, "Dune", "Herbert", "Alice")
	require.NoError(t, err)
	assert.True(t, ok)

	borrowed, err = db.ListBorrowed(ctx, "Alice")
	require.NoError(t, err)
	assert.Empty(t, borrowed)
}

func TestGetBook(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	id, _ := db.AddBook(ctx, "Dune", "Herbert")

	b, err := db.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &Book{ID: id, Title: "Dune", Author: "Herbert", Status: Available()}, b)

	_, err = db.GetBook(ctx, id+100)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSearchBooks(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	_, _ = db.AddBook(ctx, "Dune", "Frank Herbert")
	_, _ = db.AddBook(ctx, "Dune Messiah", "Frank Herbert")
	_, _ = db.AddBook(ctx, "Solaris", "Stanisław Lem")
	_, _ = db.AddBook(ctx, "100% Pure", "Under_score")
	_, _ = db.IssueBook(ctx, "Dune Messiah", "Frank Herbert", "Alice")
	_, _ = db.IssueBook(ctx, "Solaris", "Stanisław Lem", "Bob")

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"everything", Filter{}, []string{"100% Pure", "Dune", "Dune Messiah", "Solaris"}},
		{"available", Filter{State: StateAvailable}, []string{"100% Pure", "Dune"}},
		{"issued", Filter{State: StateIssued}, []string{"Dune Messiah", "Solaris"}},
		{"borrower", Filter{Borrower: "Bob"}, []string{"Solaris"}},
		{"title substring", Filter{Query: "MESSIAH"}, []string{"Dune Messiah"}},
		{"author substring", Filter{Query: "herbert"}, []string{"Dune", "Dune Messiah"}},
		{"non-ascii author", Filter{Query: "STANISŁAW"}, []string{"Solaris"}},
		{"query and state", Filter{Query: "dune", State: StateAvailable}, []string{"Dune"}},
		{"wildcards are literal", Filter{Query: "%"}, []string{"100% Pure"}},
		{"underscore is literal", Filter{Query: "_"}, []string{"100% Pure"}},
		{"no match", Filter{Query: "foundation"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := db.SearchBooks(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(books))
			for _, b := range books {
				got = append(got, b.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lib.db")
	ctx := context.Background()

	db, err := NewDatabase(path)
	require.NoError(t, err)
	first, _ := db.AddBook(ctx, "Dune", "Herbert")
	_, _ = db.IssueBook(ctx, "Dune", "Herbert", "Alice")
	_, _ = db.RemoveBook(ctx, "Dune", "Herbert")
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, []listed{{"Dune", "Herbert", "Issued to Alice"}}, listAll(t, db))

	// Ids are never reused, even after a delete.
	_, _ = db.ReturnBook(ctx, "Dune", "Herbert", "Alice")
	_, _ = db.RemoveBook(ctx, "Dune", "Herbert")
	next, err := db.AddBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	assert.Greater(t, next, first)
}

// TestLegacyCatalogMigration opens a file in the original layout, where the
// borrower was embedded in the status string.
func TestLegacyCatalogMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available'
        );`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO books(title, author, status) VALUES
            ('Dune', 'Herbert', 'Available'),
            ('Solaris', 'Lem', 'Issued to Alice Smith'),
            ('Emma', 'Austen', 'Issued to Bob')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	assert.Equal(t, []listed{
		{"Dune", "Herbert", "Available"},
		{"Emma", "Austen", "Issued to Bob"},
		{"Solaris", "Lem", "Issued to Alice Smith"},
	}, listAll(t, db))

	borrowed, err := db.ListBorrowed(ctx, "Alice Smith")
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, "Solaris", borrowed[0].Title)

	ok, err := db.ReturnBook(ctx, "solaris", "LEM", "Alice Smith")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IssueBook(ctx, "DUNE", "herbert", "Carol")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLegacyCatalogWithUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available'
        );
        INSERT INTO books(title, author, status) VALUES ('Dune', 'Herbert', 'Lost');`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = NewDatabase(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "Lost"`)
}
