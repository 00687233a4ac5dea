package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flotilla-hq/fleet-auth"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("fleet-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := Load()
	if err != nil {
		lgr.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	bunDB, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		lgr.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer bunDB.Close()

	if err := auth.RunMigrations(ctx, bunDB); err != nil {
		lgr.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := auth.NewRepositoryManager(bunDB)
	repo.MustValidate()

	acfg := authConfig{cfg: cfg}

	directory := auth.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("directory"))

	auther := auth.NewAuthenticator(directory, acfg).
		WithLogger(lgr.GetLogger("auth"))

	if err := seedAdmin(ctx, repo, cfg, lgr.GetLogger("seed")); err != nil {
		lgr.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	app := buildApp(repo, auther, acfg, lgr)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			lgr.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	lgr.Info("server listening", "addr", cfg.HTTPAddr)

	WaitExitSignal()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		lgr.Error("shutdown error", "error", err)
	}
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func buildApp(repo auth.RepositoryManager, auther auth.Authenticator, acfg authConfig, lgr *glog.BaseLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "fleet-auth",
	})

	cookies := auth.NewCookieAuthenticator(auther, acfg).
		WithLogger(lgr.GetLogger("http"))

	sessions := auth.NewAuthController(auther, cookies).
		WithLogger(lgr.GetLogger("sessions"))

	users := auth.NewUsersController(repo, auther, cookies).
		WithLogger(lgr.GetLogger("users"))

	protected := cookies.Protected()
	adminOnly := cookies.RequireRole(auth.RoleAdmin)

	app.Get("/api/info", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	session := app.Group("/api/auth")
	session.Post("/login", sessions.LoginPost)
	session.Post("/refresh", protected, sessions.RefreshPost)
	session.Post("/logout", protected, sessions.LogoutPost)

	accounts := app.Group("/api/users")
	accounts.Post("/", users.Create)
	accounts.Get("/", protected, users.List)
	accounts.Get("/:id", protected, users.Show)
	accounts.Put("/:id", protected, users.Update)
	accounts.Delete("/:id", protected, adminOnly, users.Delete)

	return app
}

// seedAdmin creates the bootstrap admin when the directory has none, so the
// at-least-one-admin invariant holds from first boot.
func seedAdmin(ctx context.Context, repo auth.RepositoryManager, cfg *Config, lgr glog.Logger) error {
	admins, err := repo.Users().CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	if admins > 0 {
		return nil
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		lgr.Warn("no admin account exists and no ADMIN_EMAIL/ADMIN_PASSWORD configured")
		return nil
	}

	handler := auth.NewRegisterUserHandler(repo)
	if err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     auth.RoleAdmin,
	}); err != nil {
		return err
	}

	lgr.Info("seeded bootstrap admin", "email", cfg.AdminEmail)
	return nil
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
