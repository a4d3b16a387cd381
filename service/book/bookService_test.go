// service/book/book_service_test.go
package booksvc

import (
	"context"
	"testing"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"

	"github.com/stretchr/testify/require"
)

type repoMock struct {
	createFn    func(ctx context.Context, in model.BookInput) (int64, error)
	addCopiesFn func(ctx context.Context, bookID int64, n int64) (*model.Book, error)
	listFn      func(ctx context.Context) ([]model.Book, error)
	detailFn    func(ctx context.Context, id int64) (*model.Book, error)
	byTitleFn   func(ctx context.Context, title string) (*model.Book, error)
	borrowFn    func(ctx context.Context, bookID int64, qty int64) error
	returnFn    func(ctx context.Context, bookID int64, qty int64) error
}

var _ Repo = (*repoMock)(nil)

func (m *repoMock) Create(ctx context.Context, in model.BookInput) (int64, error) {
	return m.createFn(ctx, in)
}

func (m *repoMock) AddCopies(ctx context.Context, bookID int64, n int64) (*model.Book, error) {
	return m.addCopiesFn(ctx, bookID, n)
}

func (m *repoMock) List(ctx context.Context) ([]model.Book, error) { return m.listFn(ctx) }

func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return m.detailFn(ctx, id)
}

func (m *repoMock) ByTitle(ctx context.Context, title string) (*model.Book, error) {
	return m.byTitleFn(ctx, title)
}

func (m *repoMock) Borrow(ctx context.Context, bookID int64, qty int64) error {
	return m.borrowFn(ctx, bookID, qty)
}

func (m *repoMock) ReturnCopies(ctx context.Context, bookID int64, qty int64) error {
	return m.returnFn(ctx, bookID, qty)
}

// memBook returns a mock whose Detail serves (and whose borrow/return
// mutate) a single in-memory book.
func memBook(b *model.Book) *repoMock {
	return &repoMock{
		detailFn: func(ctx context.Context, id int64) (*model.Book, error) {
			if b == nil || id != b.ID {
				return nil, nil
			}
			cp := *b
			return &cp, nil
		},
		borrowFn: func(ctx context.Context, bookID int64, qty int64) error {
			if b.Available < qty {
				return bookrepo.ErrNoStock
			}
			b.Available -= qty
			return nil
		},
		returnFn: func(ctx context.Context, bookID int64, qty int64) error {
			if b.Copies-b.Available < qty {
				return bookrepo.ErrOverReturn
			}
			b.Available += qty
			return nil
		},
	}
}

func TestCreate_Validation(t *testing.T) {
	s := New(&repoMock{})
	ctx := context.Background()

	_, err := s.Create(ctx, model.BookInput{Category: "Fiction", Copies: 1})
	require.Equal(t, ErrBadInput, Code(err))

	_, err = s.Create(ctx, model.BookInput{Title: "The Hobbit", Copies: 1})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestCreate_Success(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, in model.BookInput) (int64, error) {
			require.Equal(t, "The Hobbit", in.Title)
			return 42, nil
		},
	}
	s := New(m)
	id, err := s.Create(context.Background(), model.BookInput{Title: "The Hobbit", Category: "Fiction", Copies: 2})
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestBorrow_Taxonomy(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity must be positive", func(t *testing.T) {
		s := New(memBook(&model.Book{ID: 1, Copies: 3, Available: 3}))
		_, err := s.Borrow(ctx, 1, 0)
		require.Equal(t, ErrInvalidQuantity, Code(err))
		_, err = s.Borrow(ctx, 1, -2)
		require.Equal(t, ErrInvalidQuantity, Code(err))
	})

	t.Run("unknown book", func(t *testing.T) {
		s := New(memBook(nil))
		_, err := s.Borrow(ctx, 99, 1)
		require.Equal(t, ErrNotFound, Code(err))
	})

	t.Run("insufficient copies", func(t *testing.T) {
		s := New(memBook(&model.Book{ID: 1, Copies: 3, Available: 1}))
		_, err := s.Borrow(ctx, 1, 2)
		require.Equal(t, ErrInsufficientStock, Code(err))
	})

	t.Run("borrow decrements available", func(t *testing.T) {
		b := &model.Book{ID: 1, Copies: 3, Available: 3}
		s := New(memBook(b))
		got, err := s.Borrow(ctx, 1, 2)
		require.NoError(t, err)
		require.Equal(t, int64(1), got.Available)
	})
}

func TestReturnCopies_Taxonomy(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing borrowed", func(t *testing.T) {
		s := New(memBook(&model.Book{ID: 1, Copies: 3, Available: 3}))
		_, err := s.ReturnCopies(ctx, 1, 1)
		require.Equal(t, ErrNothingToReturn, Code(err))
	})

	t.Run("over-return", func(t *testing.T) {
		s := New(memBook(&model.Book{ID: 1, Copies: 3, Available: 2}))
		_, err := s.ReturnCopies(ctx, 1, 2)
		require.Equal(t, ErrOverReturn, Code(err))
	})

	t.Run("return increments available", func(t *testing.T) {
		b := &model.Book{ID: 1, Copies: 3, Available: 1}
		s := New(memBook(b))
		got, err := s.ReturnCopies(ctx, 1, 2)
		require.NoError(t, err)
		require.Equal(t, int64(3), got.Available)
	})
}

func TestBorrowReturn_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := &model.Book{ID: 1, Copies: 5, Available: 4}
	s := New(memBook(b))

	_, err := s.Borrow(ctx, 1, 3)
	require.NoError(t, err)
	got, err := s.ReturnCopies(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(4), got.Available)
}

func TestAddCopies(t *testing.T) {
	ctx := context.Background()

	m := memBook(&model.Book{ID: 1, Copies: 2, Available: 1})
	m.addCopiesFn = func(ctx context.Context, bookID int64, n int64) (*model.Book, error) {
		return &model.Book{ID: 1, Copies: 2 + n, Available: 1 + n}, nil
	}
	s := New(m)

	got, err := s.AddCopies(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Copies)
	require.Equal(t, int64(4), got.Available)

	_, err = s.AddCopies(ctx, 1, 0)
	require.Equal(t, ErrInvalidQuantity, Code(err))
}

func TestSeed_SkipsExistingTitles(t *testing.T) {
	ctx := context.Background()
	created := 0
	m := &repoMock{
		byTitleFn: func(ctx context.Context, title string) (*model.Book, error) {
			if title == "present" {
				return &model.Book{ID: 1, Title: title}, nil
			}
			return nil, nil
		},
		createFn: func(ctx context.Context, in model.BookInput) (int64, error) {
			created++
			return int64(created), nil
		},
	}
	s := New(m)

	res, err := s.Seed(ctx, []model.BookInput{
		{Title: "present", Category: "c"},
		{Title: "new one", Category: "c"},
		{Title: "another", Category: "c"},
	})
	require.NoError(t, err)
	require.Equal(t, SeedResult{Added: 2, Skipped: 1}, res)
	require.Equal(t, 2, created)
}
