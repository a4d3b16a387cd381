package loansvc

import (
	"context"
	"sort"
	"testing"
	"time"

	"librarycatalog/model"
	loanrepo "librarycatalog/repository/loan"

	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory storage collaborator honoring the same guard
// semantics as the SQL repository.
type fakeRepo struct {
	users  map[int64]*model.User
	books  map[int64]*model.Book
	loans  map[int64]*model.Loan
	titles map[int64]string
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  map[int64]*model.User{},
		books:  map[int64]*model.Book{},
		loans:  map[int64]*model.Loan{},
		titles: map[int64]string{},
	}
}

func (f *fakeRepo) addUser(id int64, admin bool) {
	f.users[id] = &model.User{ID: id, Email: "u@example.com", Name: "u", IsAdmin: admin}
}

func (f *fakeRepo) addBook(id, copies, available int64) {
	f.books[id] = &model.Book{ID: id, Title: "t", Copies: copies, Available: available}
	f.titles[id] = "t"
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeRepo) GetBook(_ context.Context, id int64) (*model.Book, error) {
	return f.books[id], nil
}

func (f *fakeRepo) GetLoan(_ context.Context, id int64) (*model.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) FindOpenLoan(_ context.Context, userID, bookID int64) (*model.Loan, error) {
	for _, l := range f.loans {
		if l.UserID == userID && l.BookID == bookID && l.ReturnDate == nil {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateWithBorrow(_ context.Context, loan *model.Loan) error {
	b := f.books[loan.BookID]
	if b == nil || b.Available < 1 {
		return loanrepo.ErrNoStock
	}
	b.Available--
	f.nextID++
	loan.ID = f.nextID
	cp := *loan
	f.loans[loan.ID] = &cp
	return nil
}

func (f *fakeRepo) SaveRenewal(_ context.Context, loan *model.Loan) error {
	stored := f.loans[loan.ID]
	stored.BorrowDate = loan.BorrowDate
	stored.RenewCount = loan.RenewCount
	return nil
}

func (f *fakeRepo) ReturnWithRestore(_ context.Context, loanID int64, returnedAt time.Time) error {
	l := f.loans[loanID]
	if l.ReturnDate != nil {
		return loanrepo.ErrAlreadyClosed
	}
	rd := returnedAt
	l.ReturnDate = &rd
	b := f.books[l.BookID]
	if b.Available < b.Copies {
		b.Available++
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	delete(f.loans, id)
	return nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64, includeReturned bool) ([]model.LoanDetail, error) {
	var out []model.LoanDetail
	for _, l := range f.loans {
		if l.UserID != userID {
			continue
		}
		if !includeReturned && l.ReturnDate != nil {
			continue
		}
		out = append(out, f.detail(l))
	}
	sortByBorrowDesc(out)
	return out, nil
}

func (f *fakeRepo) ListByBook(_ context.Context, bookID int64) ([]model.LoanDetail, error) {
	var out []model.LoanDetail
	for _, l := range f.loans {
		if l.BookID == bookID {
			out = append(out, f.detail(l))
		}
	}
	sortByBorrowDesc(out)
	return out, nil
}

func (f *fakeRepo) ListOverdue(_ context.Context, cutoff time.Time) ([]model.LoanDetail, error) {
	var out []model.LoanDetail
	for _, l := range f.loans {
		if l.ReturnDate == nil && l.BorrowDate.Before(cutoff) {
			out = append(out, f.detail(l))
		}
	}
	sortByBorrowDesc(out)
	return out, nil
}

func (f *fakeRepo) Stats(_ context.Context, userID int64) (model.LoanStats, error) {
	var st model.LoanStats
	for _, l := range f.loans {
		if userID != 0 && l.UserID != userID {
			continue
		}
		st.Total++
		if l.ReturnDate == nil {
			st.Active++
		} else {
			st.Returned++
		}
	}
	return st, nil
}

func (f *fakeRepo) detail(l *model.Loan) model.LoanDetail {
	return model.LoanDetail{Loan: *l, BookTitle: f.titles[l.BookID]}
}

func sortByBorrowDesc(ds []model.LoanDetail) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].BorrowDate.Equal(ds[j].BorrowDate) {
			return ds[i].BorrowDate.After(ds[j].BorrowDate)
		}
		return ds[i].ID > ds[j].ID
	})
}

var _ Repo = (*fakeRepo)(nil)

// --- helpers ---

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(f *fakeRepo, now *time.Time) Service {
	s := New(f).(*service)
	s.now = func() time.Time { return *now }
	return s
}

// --- tests ---

func TestCreate_DefaultsBorrowDateToNow(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 2, 2)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
	require.Equal(t, t0, loan.BorrowDate)
	require.Equal(t, 0, loan.RenewCount)
	require.Equal(t, t0.Add(model.LoanPeriod), loan.DueDate())
	require.Equal(t, int64(1), f.books[10].Available)
}

func TestCreate_AdminRejected(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, true)
	f.addBook(10, 2, 2)
	now := t0
	s := newTestService(f, &now)

	_, err := s.Create(ctx, 1, 10, nil)
	require.Error(t, err)
	require.Equal(t, ErrAdminBorrow, Code(err))
	require.Equal(t, int64(2), f.books[10].Available)
	require.Empty(t, f.loans)
}

func TestCreate_DuplicateOpenLoan(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 3, 3)
	now := t0
	s := newTestService(f, &now)

	_, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, 1, 10, nil)
	require.Equal(t, ErrDuplicateLoan, Code(err))
	require.Equal(t, int64(2), f.books[10].Available)

	// returning the first loan clears the way for a new one
	loans, err := s.UserLoans(ctx, 1, false)
	require.NoError(t, err)
	_, err = s.Return(ctx, 1, loans[0].ID)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
}

func TestSingleCopyContention(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addUser(2, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), f.books[10].Available)

	_, err = s.Create(ctx, 2, 10, nil)
	require.Equal(t, ErrUnavailable, Code(err))

	// open loans cannot be deleted
	require.Equal(t, ErrNotReturned, Code(s.Delete(ctx, 1, loan.ID)))

	returned, err := s.Return(ctx, 1, loan.ID)
	require.NoError(t, err)
	require.True(t, returned.IsReturned())
	require.Equal(t, int64(1), f.books[10].Available)

	require.NoError(t, s.Delete(ctx, 1, loan.ID))
	require.Empty(t, f.loans)
}

func TestRenew_TwiceThenLimit(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)

	now = t0.Add(7 * 24 * time.Hour)
	renewed, err := s.Renew(ctx, 1, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 1, renewed.RenewCount)
	// candidate t0+14d exceeds now, so the borrow date caps at now
	require.Equal(t, now, renewed.BorrowDate)
	require.False(t, renewed.BorrowDate.Before(t0))

	now = t0.Add(14 * 24 * time.Hour)
	renewed, err = s.Renew(ctx, 1, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 2, renewed.RenewCount)
	require.Equal(t, now, renewed.BorrowDate)

	now = t0.Add(20 * 24 * time.Hour)
	_, err = s.Renew(ctx, 1, loan.ID)
	require.Equal(t, ErrRenewLimit, Code(err))
	require.Equal(t, 2, f.loans[loan.ID].RenewCount)
}

func TestRenew_Overdue(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)

	now = t0.Add(15 * 24 * time.Hour)
	_, err = s.Renew(ctx, 1, loan.ID)
	require.Equal(t, ErrOverdue, Code(err))
}

func TestRenew_Returned(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
	now = t0.Add(24 * time.Hour)
	_, err = s.Return(ctx, 1, loan.ID)
	require.NoError(t, err)

	_, err = s.Renew(ctx, 1, loan.ID)
	require.Equal(t, ErrAlreadyReturned, Code(err))
}

func TestRenew_NoProgress(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	// borrowed this instant: the capped candidate equals the current
	// borrow date, so the renewal must not consume an attempt
	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)

	_, err = s.Renew(ctx, 1, loan.ID)
	require.Equal(t, ErrNoProgress, Code(err))
	require.Equal(t, 0, f.loans[loan.ID].RenewCount)
	require.Equal(t, t0, f.loans[loan.ID].BorrowDate)
}

func TestRenew_NotOwner(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addUser(2, false)
	f.addBook(10, 2, 2)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)

	now = t0.Add(24 * time.Hour)
	_, err = s.Renew(ctx, 2, loan.ID)
	require.Equal(t, ErrNotOwner, Code(err))
}

func TestReturn_FlooredAtBorrowDate(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	// explicit borrow date ahead of the frozen clock
	future := t0.Add(48 * time.Hour)
	loan, err := s.Create(ctx, 1, 10, &future)
	require.NoError(t, err)

	returned, err := s.Return(ctx, 1, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	require.Equal(t, future, *returned.ReturnDate)
}

func TestReturn_AlreadyReturned(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	now := t0
	s := newTestService(f, &now)

	loan, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
	now = t0.Add(24 * time.Hour)
	_, err = s.Return(ctx, 1, loan.ID)
	require.NoError(t, err)

	_, err = s.Return(ctx, 1, loan.ID)
	require.Equal(t, ErrAlreadyReturned, Code(err))
	// the copy came back exactly once
	require.Equal(t, int64(1), f.books[10].Available)
}

func TestLoanNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	now := t0
	s := newTestService(f, &now)

	_, err := s.Renew(ctx, 1, 999)
	require.Equal(t, ErrNotFound, Code(err))
	_, err = s.Return(ctx, 1, 999)
	require.Equal(t, ErrNotFound, Code(err))
	require.Equal(t, ErrNotFound, Code(s.Delete(ctx, 1, 999)))
}

func TestUserLoans_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	f.addBook(11, 1, 1)
	f.addBook(12, 1, 1)
	now := t0
	s := newTestService(f, &now)

	d1 := t0.Add(-72 * time.Hour)
	d2 := t0.Add(-48 * time.Hour)
	d3 := t0.Add(-24 * time.Hour)
	first, err := s.Create(ctx, 1, 10, &d1)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, 11, &d2)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, 12, &d3)
	require.NoError(t, err)

	_, err = s.Return(ctx, 1, first.ID)
	require.NoError(t, err)

	all, err := s.UserLoans(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []int64{12, 11, 10}, []int64{all[0].BookID, all[1].BookID, all[2].BookID})

	open, err := s.UserLoans(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, l := range open {
		require.False(t, l.IsReturned())
	}
}

func TestOverdueLoans(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addBook(10, 1, 1)
	f.addBook(11, 1, 1)
	now := t0
	s := newTestService(f, &now)

	old := t0.Add(-16 * 24 * time.Hour)
	fresh := t0.Add(-2 * 24 * time.Hour)
	overdueLoan, err := s.Create(ctx, 1, 10, &old)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, 11, &fresh)
	require.NoError(t, err)

	rows, err := s.OverdueLoans(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, overdueLoan.ID, rows[0].ID)
	require.True(t, rows[0].IsOverdue(now))

	// a returned loan drops out of the overdue listing
	_, err = s.Return(ctx, 1, overdueLoan.ID)
	require.NoError(t, err)
	rows, err = s.OverdueLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFakeRepo()
	f.addUser(1, false)
	f.addUser(2, false)
	f.addBook(10, 2, 2)
	f.addBook(11, 2, 2)
	now := t0
	s := newTestService(f, &now)

	l1, err := s.Create(ctx, 1, 10, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, 11, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, 2, 10, nil)
	require.NoError(t, err)

	now = t0.Add(24 * time.Hour)
	_, err = s.Return(ctx, 1, l1.ID)
	require.NoError(t, err)

	mine, err := s.Statistics(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.LoanStats{Total: 2, Active: 1, Returned: 1}, mine)

	global, err := s.Statistics(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, model.LoanStats{Total: 3, Active: 2, Returned: 1}, global)
}
