package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
	"github.com/jobboard/go-auth/controller"
	"github.com/jobboard/go-auth/middleware/jwtware"
	"github.com/jobboard/go-auth/repository"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("authd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	log := lgr.GetLogger("main")

	cfg, err := auth.LoadConfig()
	exitOnError(log, "configuration", err)

	if cfg.IsProduction() {
		lgr.WithLevel(glog.Info)
	}

	redacted := cfg
	redacted.SigningKey = "********"
	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(redacted))
	fmt.Println("============")

	ctx := context.Background()

	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	exitOnError(log, "database", err)
	defer db.Close()

	exitOnError(log, "audit schema", repository.CreateSchema(ctx, db))

	if !cfg.IsProduction() {
		exitOnError(log, "accounts schema", repository.CreateAccountsTable(ctx, db))
	}

	named := func(name string) auth.Logger {
		return auth.FromGlog(lgr.GetLogger(name))
	}

	tokens, err := auth.NewTokenService(cfg, named("tokens"))
	exitOnError(log, "token service", err)

	guard := auth.NewAccessGuardFromConfig(tokens, cfg, named("guard"))

	auditLogger := named("audit")
	entries := repository.NewAuditEntries(db)
	dispatcher := auth.NewAuditDispatcher(entries,
		auth.WithDispatcherLogger(auditLogger),
		auth.WithFailureHandler(func(entry *auth.AuditEntry, err error) {
			auditLogger.Error("audit entry %s lost: %v", entry.ID, err)
		}),
	)
	recorder := auth.NewAuditRecorder(dispatcher, auth.WithAuditLogger(auditLogger))

	provider := auth.NewAccountProvider(repository.NewAccounts(db), named("accounts"))
	auther := auth.NewAuthenticator(provider, tokens, recorder).WithLogger(named("auth"))

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return jwtware.CaptureClientIP(fiber.New(fiber.Config{
			AppName:               "jobboard-authd",
			DisableStartupMessage: cfg.IsProduction(),
		}))
	})

	httpLogger := named("http")
	r := srv.Router()
	r.Use(controller.ErrorMiddleware(httpLogger))

	controller.RegisterAuthRoutes(r.Group("/auth"), controller.NewAuthController(auther, guard,
		controller.WithControllerLogger(httpLogger),
		controller.WithSecureCookies(cfg.IsProduction()),
	))
	controller.RegisterAuditRoutes(r.Group("/admin"), guard, controller.NewAuditController(entries, httpLogger))

	if !cfg.IsProduction() {
		r.PrintRoutes()
	}

	go func() {
		if err := srv.Serve(cfg.ListenAddr); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	log.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}

	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error("audit dispatcher close", "error", err)
	}
}

func exitOnError(log glog.Logger, step string, err error) {
	if err == nil {
		return
	}
	log.Error("startup failed", "step", step, "error", err)
	os.Exit(1)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
