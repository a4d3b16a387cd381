// Package main library catalog API.
//
// @title           Library Catalog API
// @version         1.0
// @description     library catalog service (books, members, loans).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"librarycatalog/app/echoServer"
	authctrl "librarycatalog/app/echoServer/controller/auth"
	bookctrl "librarycatalog/app/echoServer/controller/book"
	loanctrl "librarycatalog/app/echoServer/controller/loan"
	"librarycatalog/app/echoServer/validation"
	"librarycatalog/books"
	"librarycatalog/config"
	bookrepo "librarycatalog/repository/book"
	loanrepo "librarycatalog/repository/loan"
	tokenrepo "librarycatalog/repository/token"
	userrepo "librarycatalog/repository/user"
	authsvc "librarycatalog/service/auth"
	booksvc "librarycatalog/service/book"
	loansvc "librarycatalog/service/loan"
	"librarycatalog/util/cache"
	"librarycatalog/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// redis-backed token blacklist
	redis := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	tokens := tokenrepo.New(redis)

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	lr := loanrepo.New(db)

	// services
	as := authsvc.New(ur, tokens, cfg.JWTSecret)
	bs := booksvc.New(br)
	ls := loansvc.New(lr)

	// bootstrap admin + catalog seed
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := as.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
			log.Error("admin bootstrap failed", "err", err)
			os.Exit(1)
		}
	}
	if cfg.SeedBooks {
		entries, err := books.All()
		if err != nil {
			log.Error("seed catalog unreadable", "err", err)
			os.Exit(1)
		}
		res, err := bs.Seed(ctx, entries)
		if err != nil {
			log.Error("catalog seed failed", "err", err)
			os.Exit(1)
		}
		log.Info("catalog seeded", "added", res.Added, "skipped", res.Skipped)
	}

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth: authC,
		Book: bookC,
		Loan: loanC,

		Tokens:    tokens,
		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
