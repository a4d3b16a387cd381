package loansvc

import (
	"context"
	"errors"
	"time"

	"librarycatalog/model"
	loanrepo "librarycatalog/repository/loan"
)

// errors used by controllers

type ErrCode string

const (
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrNotFound        ErrCode = "LOAN_NOT_FOUND"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrAdminBorrow     ErrCode = "ADMIN_CANNOT_BORROW"
	ErrDuplicateLoan   ErrCode = "DUPLICATE_LOAN"
	ErrUnavailable     ErrCode = "BOOK_UNAVAILABLE"
	ErrAlreadyReturned ErrCode = "LOAN_RETURNED"
	ErrOverdue         ErrCode = "LOAN_OVERDUE"
	ErrRenewLimit      ErrCode = "RENEW_LIMIT"
	ErrNoProgress      ErrCode = "RENEWAL_NO_PROGRESS"
	ErrNotReturned     ErrCode = "NOT_RETURNED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo = loanrepo.Repo

type Service interface {
	// Create opens a loan for the member on the book. borrowDate defaults
	// to now (UTC) when nil; passing one supports imports of historic data.
	Create(ctx context.Context, userID, bookID int64, borrowDate *time.Time) (*model.Loan, error)

	// Renew pushes borrowDate forward by the loan period, capped at now.
	Renew(ctx context.Context, userID, loanID int64) (*model.Loan, error)

	// Return closes the loan and frees the copy.
	Return(ctx context.Context, userID, loanID int64) (*model.Loan, error)

	// Delete removes a returned loan from history.
	Delete(ctx context.Context, userID, loanID int64) error

	UserLoans(ctx context.Context, userID int64, includeReturned bool) ([]model.LoanDetail, error)
	BookLoans(ctx context.Context, bookID int64) ([]model.LoanDetail, error)
	OverdueLoans(ctx context.Context) ([]model.LoanDetail, error)

	// Statistics returns counts for one member, or global counts when
	// userID is zero.
	Statistics(ctx context.Context, userID int64) (model.LoanStats, error)
}

type service struct {
	r   Repo
	now func() time.Time
}

func New(r Repo) Service {
	return &service{r: r, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) Create(ctx context.Context, userID, bookID int64, borrowDate *time.Time) (*model.Loan, error) {
	user, err := s.r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, makeErr(ErrUserNotFound)
	}
	if user.IsAdmin {
		return nil, makeErr(ErrAdminBorrow)
	}

	book, err := s.r.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, makeErr(ErrBookNotFound)
	}

	open, err := s.r.FindOpenLoan(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, makeErr(ErrDuplicateLoan)
	}

	if book.Available <= 0 {
		return nil, makeErr(ErrUnavailable)
	}

	bd := s.now()
	if borrowDate != nil {
		bd = borrowDate.UTC()
	}

	loan := &model.Loan{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: bd,
		RenewCount: 0,
	}
	if err := s.r.CreateWithBorrow(ctx, loan); err != nil {
		if errors.Is(err, loanrepo.ErrNoStock) {
			// lost the race on the last copy
			return nil, makeErr(ErrUnavailable)
		}
		return nil, err
	}
	return loan, nil
}

func (s *service) Renew(ctx context.Context, userID, loanID int64) (*model.Loan, error) {
	loan, err := s.getOwned(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case loan.IsReturned():
		return nil, makeErr(ErrAlreadyReturned)
	case loan.IsOverdue(now):
		return nil, makeErr(ErrOverdue)
	case loan.RenewCount >= model.MaxRenewals:
		return nil, makeErr(ErrRenewLimit)
	}

	// Extend by one loan period but never move the borrow date into the
	// future; a capped candidate that does not advance the date is a no-op
	// and must not consume a renewal.
	candidate := loan.BorrowDate.Add(model.LoanPeriod)
	if candidate.After(now) {
		candidate = now
	}
	if !candidate.After(loan.BorrowDate) {
		return nil, makeErr(ErrNoProgress)
	}

	loan.BorrowDate = candidate
	loan.RenewCount++
	if err := s.r.SaveRenewal(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *service) Return(ctx context.Context, userID, loanID int64) (*model.Loan, error) {
	loan, err := s.getOwned(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsReturned() {
		return nil, makeErr(ErrAlreadyReturned)
	}

	// Returns never predate the borrow; matters when a loan was created
	// with an explicit future-leaning borrow date.
	rd := s.now()
	if rd.Before(loan.BorrowDate) {
		rd = loan.BorrowDate
	}

	if err := s.r.ReturnWithRestore(ctx, loanID, rd); err != nil {
		if errors.Is(err, loanrepo.ErrAlreadyClosed) {
			return nil, makeErr(ErrAlreadyReturned)
		}
		return nil, err
	}
	loan.ReturnDate = &rd
	return loan, nil
}

func (s *service) Delete(ctx context.Context, userID, loanID int64) error {
	loan, err := s.getOwned(ctx, userID, loanID)
	if err != nil {
		return err
	}
	if !loan.CanDelete() {
		return makeErr(ErrNotReturned)
	}
	return s.r.Delete(ctx, loanID)
}

func (s *service) UserLoans(ctx context.Context, userID int64, includeReturned bool) ([]model.LoanDetail, error) {
	return s.r.ListByUser(ctx, userID, includeReturned)
}

func (s *service) BookLoans(ctx context.Context, bookID int64) ([]model.LoanDetail, error) {
	return s.r.ListByBook(ctx, bookID)
}

func (s *service) OverdueLoans(ctx context.Context) ([]model.LoanDetail, error) {
	cutoff := s.now().Add(-model.LoanPeriod)
	return s.r.ListOverdue(ctx, cutoff)
}

func (s *service) Statistics(ctx context.Context, userID int64) (model.LoanStats, error) {
	return s.r.Stats(ctx, userID)
}

// getOwned loads the loan and checks it belongs to the caller. userID 0
// skips the ownership check (admin paths).
func (s *service) getOwned(ctx context.Context, userID, loanID int64) (*model.Loan, error) {
	loan, err := s.r.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrNotFound)
	}
	if userID != 0 && loan.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	return loan, nil
}
