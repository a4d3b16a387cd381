// repository/book/bookRepository.go
package bookrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"librarycatalog/model"
)

var (
	// ErrNoStock: guarded decrement found fewer available copies than requested.
	ErrNoStock = errors.New("not enough available copies")
	// ErrOverReturn: guarded increment would push available past copies.
	ErrOverReturn = errors.New("return exceeds borrowed copies")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the loan repository can
// run the same guarded inventory statements inside its own transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo interface {
	Create(ctx context.Context, in model.BookInput) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int64) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	ByTitle(ctx context.Context, title string) (*model.Book, error)
	Borrow(ctx context.Context, bookID int64, qty int64) error
	ReturnCopies(ctx context.Context, bookID int64, qty int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookCols = `id, title, category, genres, authors, url, description, pages, copies, available`

func (r *repo) Create(ctx context.Context, in model.BookInput) (int64, error) {
	genres, err := json.Marshal(in.Genres)
	if err != nil {
		return 0, err
	}
	authors, err := json.Marshal(in.Authors)
	if err != nil {
		return 0, err
	}
	desc, err := json.Marshal(in.Description)
	if err != nil {
		return 0, err
	}
	// New titles start fully on the shelf: available = copies.
	const q = `
INSERT INTO books (title, category, genres, authors, url, description, pages, copies, available)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q,
		in.Title, in.Category, genres, authors, in.URL, desc, in.Pages, in.Copies,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) AddCopies(ctx context.Context, bookID int64, n int64) (*model.Book, error) {
	const q = `
UPDATE books
SET copies = copies + $2,
    available = available + $2
WHERE id = $1
RETURNING ` + bookCols
	return scanBook(r.db.QueryRowContext(ctx, q, bookID, n))
}

func (r *repo) List(ctx context.Context) ([]model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		b, err := scanBookRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books WHERE id = $1`
	b, err := scanBook(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *repo) ByTitle(ctx context.Context, title string) (*model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books WHERE title = $1`
	b, err := scanBook(r.db.QueryRowContext(ctx, q, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *repo) Borrow(ctx context.Context, bookID int64, qty int64) error {
	return BorrowCopies(ctx, r.db, bookID, qty)
}

func (r *repo) ReturnCopies(ctx context.Context, bookID int64, qty int64) error {
	return RestoreCopies(ctx, r.db, bookID, qty)
}

// BorrowCopies atomically takes qty copies off the shelf. The guard clause
// makes concurrent borrows serialize on the row instead of over-decrementing;
// GREATEST keeps available at 0 even if drift ever crept in.
func BorrowCopies(ctx context.Context, db DBTX, bookID int64, qty int64) error {
	const q = `
UPDATE books
SET available = GREATEST(available - $2, 0)
WHERE id = $1
  AND available >= $2`
	res, err := db.ExecContext(ctx, q, bookID, qty)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNoStock
	}
	return nil
}

// RestoreCopies atomically puts qty copies back, refusing to exceed the
// borrowed count and clamping at copies.
func RestoreCopies(ctx context.Context, db DBTX, bookID int64, qty int64) error {
	const q = `
UPDATE books
SET available = LEAST(available + $2, copies)
WHERE id = $1
  AND copies - available >= $2`
	res, err := db.ExecContext(ctx, q, bookID, qty)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrOverReturn
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanBook(row *sql.Row) (*model.Book, error) { return scanInto(row) }

func scanBookRows(rows *sql.Rows) (*model.Book, error) { return scanInto(rows) }

func scanInto(s rowScanner) (*model.Book, error) {
	var b model.Book
	var genres, authors, desc []byte
	var url sql.NullString
	var pages sql.NullInt64
	if err := s.Scan(&b.ID, &b.Title, &b.Category, &genres, &authors, &url, &desc, &pages, &b.Copies, &b.Available); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(genres, &b.Genres); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(authors, &b.Authors); err != nil {
		return nil, err
	}
	if len(desc) > 0 {
		if err := json.Unmarshal(desc, &b.Description); err != nil {
			return nil, err
		}
	}
	b.URL = url.String
	b.Pages = int(pages.Int64)
	return &b, nil
}
