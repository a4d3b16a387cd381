package loan

import (
	"time"

	"librarycatalog/model"
)

type CreateLoanReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`

	// BorrowDate is optional; the service defaults it to now.
	BorrowDate *time.Time `json:"borrow_date"`
}

// LoanView is a history row plus the derived state the loans page shows.
type LoanView struct {
	ID          int64      `json:"id"`
	BookID      int64      `json:"book_id"`
	BookTitle   string     `json:"book_title"`
	BookAuthors []string   `json:"book_authors"`
	BookURL     string     `json:"book_url,omitempty"`
	BorrowDate  time.Time  `json:"borrow_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	RenewCount  int        `json:"renew_count"`
	IsOverdue   bool       `json:"is_overdue"`
	IsReturned  bool       `json:"is_returned"`
	CanRenew    bool       `json:"can_renew"`
	CanReturn   bool       `json:"can_return"`
	CanDelete   bool       `json:"can_delete"`
}

func toView(d model.LoanDetail, now time.Time) LoanView {
	return LoanView{
		ID:          d.ID,
		BookID:      d.BookID,
		BookTitle:   d.BookTitle,
		BookAuthors: d.BookAuthors,
		BookURL:     d.BookURL,
		BorrowDate:  d.BorrowDate,
		DueDate:     d.DueDate(),
		ReturnDate:  d.ReturnDate,
		RenewCount:  d.RenewCount,
		IsOverdue:   d.IsOverdue(now),
		IsReturned:  d.IsReturned(),
		CanRenew:    d.CanRenew(now),
		CanReturn:   d.CanReturn(),
		CanDelete:   d.CanDelete(),
	}
}

func toViews(ds []model.LoanDetail, now time.Time) []LoanView {
	out := make([]LoanView, 0, len(ds))
	for _, d := range ds {
		out = append(out, toView(d, now))
	}
	return out
}
