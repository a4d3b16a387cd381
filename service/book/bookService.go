package booksvc

import (
	"context"
	"errors"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"
)

// errors used by controllers

type ErrCode string

const (
	ErrBadInput          ErrCode = "BAD_INPUT"
	ErrNotFound          ErrCode = "BOOK_NOT_FOUND"
	ErrInvalidQuantity   ErrCode = "INVALID_QUANTITY"
	ErrInsufficientStock ErrCode = "INSUFFICIENT_COPIES"
	ErrNothingToReturn   ErrCode = "NOTHING_TO_RETURN"
	ErrOverReturn        ErrCode = "OVER_RETURN"
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

// SeedResult reports what a catalog seed run did.
type SeedResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
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

type Service interface {
	Create(ctx context.Context, in model.BookInput) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int64) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)

	// Borrow takes qty copies off the shelf; ReturnCopies puts them back.
	// Both enforce the inventory bounds before touching storage.
	Borrow(ctx context.Context, bookID int64, qty int64) (*model.Book, error)
	ReturnCopies(ctx context.Context, bookID int64, qty int64) (*model.Book, error)

	// Seed inserts catalog entries whose titles are not present yet.
	Seed(ctx context.Context, entries []model.BookInput) (SeedResult, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, in model.BookInput) (int64, error) {
	if in.Title == "" || in.Category == "" || in.Copies < 0 {
		return 0, makeErr(ErrBadInput)
	}
	return s.r.Create(ctx, in)
}

func (s *service) AddCopies(ctx context.Context, bookID int64, n int64) (*model.Book, error) {
	if n <= 0 {
		return nil, makeErr(ErrInvalidQuantity)
	}
	b, err := s.r.Detail(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound)
	}
	return s.r.AddCopies(ctx, bookID, n)
}

func (s *service) List(ctx context.Context) ([]model.Book, error) { return s.r.List(ctx) }

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound)
	}
	return b, nil
}

func (s *service) Borrow(ctx context.Context, bookID int64, qty int64) (*model.Book, error) {
	if qty <= 0 {
		return nil, makeErr(ErrInvalidQuantity)
	}
	b, err := s.r.Detail(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound)
	}
	if b.Available < qty {
		return nil, makeErr(ErrInsufficientStock)
	}
	if err := s.r.Borrow(ctx, bookID, qty); err != nil {
		if errors.Is(err, bookrepo.ErrNoStock) {
			// lost the race between the check and the guarded update
			return nil, makeErr(ErrInsufficientStock)
		}
		return nil, err
	}
	return s.r.Detail(ctx, bookID)
}

func (s *service) ReturnCopies(ctx context.Context, bookID int64, qty int64) (*model.Book, error) {
	if qty <= 0 {
		return nil, makeErr(ErrInvalidQuantity)
	}
	b, err := s.r.Detail(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound)
	}
	if b.Borrowed() <= 0 {
		return nil, makeErr(ErrNothingToReturn)
	}
	if qty > b.Borrowed() {
		return nil, makeErr(ErrOverReturn)
	}
	if err := s.r.ReturnCopies(ctx, bookID, qty); err != nil {
		if errors.Is(err, bookrepo.ErrOverReturn) {
			return nil, makeErr(ErrOverReturn)
		}
		return nil, err
	}
	return s.r.Detail(ctx, bookID)
}

func (s *service) Seed(ctx context.Context, entries []model.BookInput) (SeedResult, error) {
	var res SeedResult
	for _, in := range entries {
		existing, err := s.r.ByTitle(ctx, in.Title)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}
		if _, err := s.r.Create(ctx, in); err != nil {
			return res, err
		}
		res.Added++
	}
	return res, nil
}
