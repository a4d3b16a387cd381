package loan

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"librarycatalog/app/echoServer/jwtx"
	loansvc "librarycatalog/service/loan"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc loansvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/loans
func (h *Controller) Create(c echo.Context) error {
	var req CreateLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	loan, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, req.BorrowDate)
	if err != nil {
		return h.mapErr(c, "loan create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"loan":     loan,
		"due_date": loan.DueDate(),
	})
}

// POST /v1/loans/:id/renew
func (h *Controller) Renew(c echo.Context) error {
	id, uid, ok := h.idAndUser(c)
	if !ok {
		return nil
	}
	loan, err := h.Svc.Renew(c.Request().Context(), uid, id)
	if err != nil {
		return h.mapErr(c, "loan renew", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"loan":     loan,
		"due_date": loan.DueDate(),
	})
}

// POST /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, uid, ok := h.idAndUser(c)
	if !ok {
		return nil
	}
	loan, err := h.Svc.Return(c.Request().Context(), uid, id)
	if err != nil {
		return h.mapErr(c, "loan return", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"loan": loan})
}

// DELETE /v1/loans/:id
func (h *Controller) Delete(c echo.Context) error {
	id, uid, ok := h.idAndUser(c)
	if !ok {
		return nil
	}
	if err := h.Svc.Delete(c.Request().Context(), uid, id); err != nil {
		return h.mapErr(c, "loan delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// GET /v1/loans/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	includeReturned := true
	if v := c.QueryParam("include_returned"); v != "" {
		includeReturned, _ = strconv.ParseBool(v)
	}
	rows, err := h.Svc.UserLoans(c.Request().Context(), uid, includeReturned)
	if err != nil {
		h.Log.Error("loan history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toViews(rows, time.Now().UTC())})
}

// GET /v1/books/:id/loans  (admin)
func (h *Controller) ByBook(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.BookLoans(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("loans by book", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toViews(rows, time.Now().UTC())})
}

// GET /v1/loans/overdue  (admin)
func (h *Controller) Overdue(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rows, err := h.Svc.OverdueLoans(c.Request().Context())
	if err != nil {
		h.Log.Error("overdue loans", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toViews(rows, time.Now().UTC())})
}

// GET /v1/loans/stats — members see their own counts, admins the global ones.
func (h *Controller) Stats(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	if jwtx.IsAdmin(c) {
		uid = 0
	}
	st, err := h.Svc.Statistics(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("loan stats", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Controller) idAndUser(c echo.Context) (int64, int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
		return 0, 0, false
	}
	uid, _ := c.Get("user_id").(int64)
	return id, uid, true
}

func (h *Controller) mapErr(c echo.Context, op string, err error) error {
	switch loansvc.Code(err) {
	case loansvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
	case loansvc.ErrBookNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	case loansvc.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	case loansvc.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case loansvc.ErrAdminBorrow:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "admin users cannot borrow books"})
	case loansvc.ErrDuplicateLoan:
		return c.JSON(http.StatusConflict, echo.Map{"message": "you already have an unreturned loan for this book"})
	case loansvc.ErrUnavailable:
		return c.JSON(http.StatusConflict, echo.Map{"message": "book is currently not available for loan"})
	case loansvc.ErrAlreadyReturned:
		return c.JSON(http.StatusConflict, echo.Map{"message": "loan has already been returned"})
	case loansvc.ErrOverdue:
		return c.JSON(http.StatusConflict, echo.Map{"message": "cannot renew an overdue loan"})
	case loansvc.ErrRenewLimit:
		return c.JSON(http.StatusConflict, echo.Map{"message": "maximum renewal limit reached"})
	case loansvc.ErrNoProgress:
		return c.JSON(http.StatusConflict, echo.Map{"message": "renewal would not move the due date forward"})
	case loansvc.ErrNotReturned:
		return c.JSON(http.StatusConflict, echo.Map{"message": "only returned loans can be deleted"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
