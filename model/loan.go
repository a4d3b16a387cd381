// model/loan.go
package model

import "time"

const (
	// LoanPeriod is how long a borrower keeps a book before it falls due.
	LoanPeriod = 14 * 24 * time.Hour

	// MaxRenewals caps how many times a single loan may be renewed.
	MaxRenewals = 2
)

// Loan tracks one borrowing of one book by one member. A nil ReturnDate
// means the loan is still open and the copy is out.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	RenewCount int        `json:"renew_count"`
}

// DueDate is BorrowDate plus the loan period.
func (l *Loan) DueDate() time.Time { return l.BorrowDate.Add(LoanPeriod) }

func (l *Loan) IsReturned() bool { return l.ReturnDate != nil }

// IsOverdue reports whether an open loan has passed its due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	return !l.IsReturned() && now.After(l.DueDate())
}

// CanRenew: open, not overdue, renewal cap not reached.
func (l *Loan) CanRenew(now time.Time) bool {
	return !l.IsReturned() && !l.IsOverdue(now) && l.RenewCount < MaxRenewals
}

func (l *Loan) CanReturn() bool { return !l.IsReturned() }

// CanDelete: only closed loans may be removed from history.
func (l *Loan) CanDelete() bool { return l.IsReturned() }

// LoanDetail is a history row: the loan joined with the book it covers.
type LoanDetail struct {
	Loan
	BookTitle   string   `json:"book_title"`
	BookAuthors []string `json:"book_authors"`
	BookURL     string   `json:"book_url,omitempty"`
}

// LoanStats are the aggregate counts shown on the loans page.
type LoanStats struct {
	Total    int64 `json:"total_loans"`
	Active   int64 `json:"active_loans"`
	Returned int64 `json:"returned_loans"`
}
