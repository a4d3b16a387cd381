package echoServer

import (
	"context"
	"net/http"

	authctrl "librarycatalog/app/echoServer/controller/auth"
	bookctrl "librarycatalog/app/echoServer/controller/book"
	loanctrl "librarycatalog/app/echoServer/controller/loan"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// TokenChecker answers whether a token id has been revoked by logout.
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type C struct {
	Auth *authctrl.Controller
	Book *bookctrl.Controller
	Loan *loanctrl.Controller

	Tokens    TokenChecker
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// claims extraction + logout blacklist
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			tok, ok := tokenObj.(*jwt.Token)
			if !ok || tok == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}

			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}

			jti, _ := claims["jti"].(string)
			if c.Tokens != nil && jti != "" {
				if revoked, _ := c.Tokens.IsBlacklisted(ctx.Request().Context(), jti); revoked {
					return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "token revoked"})
				}
			}

			admin, _ := claims["admin"].(bool)
			ctx.Set("user_id", int64(sub))
			ctx.Set("is_admin", admin)
			ctx.Set("jti", jti)
			return next(ctx)
		}
	})

	auth.POST("/users/logout", c.Auth.Logout)

	// Books
	auth.GET("/books", c.Book.List)
	auth.GET("/books/:id", c.Book.Detail)
	// Admin endpoints
	auth.POST("/books", c.Book.Create)
	auth.POST("/books/:id/copies", c.Book.AddCopies)
	auth.POST("/books/:id/stock", c.Book.AdjustStock)
	auth.GET("/books/:id/loans", c.Loan.ByBook)

	// Loans
	auth.POST("/loans", c.Loan.Create)
	auth.POST("/loans/:id/renew", c.Loan.Renew)
	auth.POST("/loans/:id/return", c.Loan.Return)
	auth.DELETE("/loans/:id", c.Loan.Delete)
	auth.GET("/loans/my", c.Loan.My)
	auth.GET("/loans/overdue", c.Loan.Overdue)
	auth.GET("/loans/stats", c.Loan.Stats)
}
