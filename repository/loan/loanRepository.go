// repository/loan/loanRepository.go
package loanrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"
)

// ErrNoStock is re-exported so the service layer maps it without importing
// the book repository.
var ErrNoStock = bookrepo.ErrNoStock

type Repo interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	GetLoan(ctx context.Context, id int64) (*model.Loan, error)
	FindOpenLoan(ctx context.Context, userID, bookID int64) (*model.Loan, error)

	// CreateWithBorrow inserts the loan and takes one copy off the shelf in
	// a single transaction; either both happen or neither does.
	CreateWithBorrow(ctx context.Context, loan *model.Loan) error

	SaveRenewal(ctx context.Context, loan *model.Loan) error

	// ReturnWithRestore closes the loan and puts the copy back atomically.
	ReturnWithRestore(ctx context.Context, loanID int64, returnedAt time.Time) error

	Delete(ctx context.Context, id int64) error

	ListByUser(ctx context.Context, userID int64, includeReturned bool) ([]model.LoanDetail, error)
	ListByBook(ctx context.Context, bookID int64) ([]model.LoanDetail, error)
	ListOverdue(ctx context.Context, cutoff time.Time) ([]model.LoanDetail, error)
	Stats(ctx context.Context, userID int64) (model.LoanStats, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) GetUser(ctx context.Context, id int64) (*model.User, error) {
	const q = `
SELECT id, email, name, password_hash, is_admin, created_at
FROM users
WHERE id = $1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, copies, available
FROM books
WHERE id = $1`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Copies, &b.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const loanCols = `id, user_id, book_id, borrow_date, return_date, renew_count`

func (r *repo) GetLoan(ctx context.Context, id int64) (*model.Loan, error) {
	const q = `SELECT ` + loanCols + ` FROM loans WHERE id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) FindOpenLoan(ctx context.Context, userID, bookID int64) (*model.Loan, error) {
	const q = `
SELECT ` + loanCols + `
FROM loans
WHERE user_id = $1
  AND book_id = $2
  AND return_date IS NULL
LIMIT 1`
	return scanLoan(r.db.QueryRowContext(ctx, q, userID, bookID))
}

func (r *repo) CreateWithBorrow(ctx context.Context, loan *model.Loan) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bookrepo.BorrowCopies(ctx, tx, loan.BookID, 1); err != nil {
		return err
	}

	const q = `
INSERT INTO loans (user_id, book_id, borrow_date, renew_count)
VALUES ($1, $2, $3, $4)
RETURNING id`
	if err = tx.QueryRowContext(ctx, q, loan.UserID, loan.BookID, loan.BorrowDate, loan.RenewCount).Scan(&loan.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repo) SaveRenewal(ctx context.Context, loan *model.Loan) error {
	const q = `
UPDATE loans
SET borrow_date = $2,
    renew_count = $3
WHERE id = $1
  AND return_date IS NULL`
	res, err := r.db.ExecContext(ctx, q, loan.ID, loan.BorrowDate, loan.RenewCount)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ReturnWithRestore(ctx context.Context, loanID int64, returnedAt time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the row so a concurrent return of the same loan cannot free the
	// copy twice.
	const sel = `
SELECT book_id, return_date
FROM loans
WHERE id = $1
FOR UPDATE`
	var bookID int64
	var returnDate *time.Time
	if err = tx.QueryRowContext(ctx, sel, loanID).Scan(&bookID, &returnDate); err != nil {
		return err
	}
	if returnDate != nil {
		err = ErrAlreadyClosed
		return err
	}

	const upd = `UPDATE loans SET return_date = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, upd, loanID, returnedAt); err != nil {
		return err
	}

	if err = bookrepo.RestoreCopies(ctx, tx, bookID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

// ErrAlreadyClosed: the loan already had a return date when the closing
// transaction took its lock.
var ErrAlreadyClosed = errors.New("loan already returned")

func (r *repo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM loans WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const detailSelect = `
SELECT l.id, l.user_id, l.book_id, l.borrow_date, l.return_date, l.renew_count,
       b.title, b.authors, b.url
FROM loans l
JOIN books b ON b.id = l.book_id`

func (r *repo) ListByUser(ctx context.Context, userID int64, includeReturned bool) ([]model.LoanDetail, error) {
	q := detailSelect + `
WHERE l.user_id = $1`
	if !includeReturned {
		q += `
  AND l.return_date IS NULL`
	}
	q += `
ORDER BY l.borrow_date DESC, l.id DESC`
	return r.queryDetails(ctx, q, userID)
}

func (r *repo) ListByBook(ctx context.Context, bookID int64) ([]model.LoanDetail, error) {
	q := detailSelect + `
WHERE l.book_id = $1
ORDER BY l.borrow_date DESC, l.id DESC`
	return r.queryDetails(ctx, q, bookID)
}

func (r *repo) ListOverdue(ctx context.Context, cutoff time.Time) ([]model.LoanDetail, error) {
	q := detailSelect + `
WHERE l.return_date IS NULL
  AND l.borrow_date < $1
ORDER BY l.borrow_date DESC, l.id DESC`
	return r.queryDetails(ctx, q, cutoff)
}

func (r *repo) Stats(ctx context.Context, userID int64) (model.LoanStats, error) {
	q := `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE return_date IS NULL),
       COUNT(*) FILTER (WHERE return_date IS NOT NULL)
FROM loans`
	args := []any{}
	if userID != 0 {
		q += `
WHERE user_id = $1`
		args = append(args, userID)
	}
	var st model.LoanStats
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&st.Total, &st.Active, &st.Returned); err != nil {
		return model.LoanStats{}, err
	}
	return st, nil
}

func (r *repo) queryDetails(ctx context.Context, q string, args ...any) ([]model.LoanDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LoanDetail
	for rows.Next() {
		var d model.LoanDetail
		var authors []byte
		var url sql.NullString
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.BookID, &d.BorrowDate, &d.ReturnDate, &d.RenewCount,
			&d.BookTitle, &authors, &url,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(authors, &d.BookAuthors); err != nil {
			return nil, err
		}
		d.BookURL = url.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanLoan(row *sql.Row) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &l.ReturnDate, &l.RenewCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
