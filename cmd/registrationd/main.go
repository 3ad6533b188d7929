package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-registration"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("registrationd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	ctx := context.Background()

	settings := registration.NewSettings(func(name string) (any, bool) {
		v, ok := os.LookupEnv(name)
		return v, ok
	})

	db, err := openDB(ctx, lgr)
	if err != nil {
		lgr.Error("unable to open database", "error", err)
		os.Exit(1)
	}

	repo := registration.NewRepositoryManager(db)
	repo.MustValidate()

	notifier, err := buildNotifier(settings)
	if err != nil {
		lgr.Error("unable to build notifier", "error", err)
		os.Exit(1)
	}

	controller := registration.NewRegistrationController(
		registration.WithControllerRepo(repo),
		registration.WithControllerSettings(settings),
		registration.WithControllerNotifier(notifier),
		registration.WithControllerLogger(loggerAdapter{lgr.GetLogger("registration")}),
		registration.WithControllerDebug(os.Getenv("DEBUG") != ""),
	)

	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		lgr.Error("unable to scope embedded views", "error", err)
		os.Exit(1)
	}
	engine := django.NewFileSystem(http.FS(templates), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			Views:         engine,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	controller.RegisterRoutes(srv.Router())

	srv.Router().Get("/activated", func(ctx router.Context) error {
		return ctx.Render("activated", router.ViewContext{
			"title": "Account activated",
		})
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8573"
	}

	go srv.Serve(addr)
	lgr.Info("listening", "addr", addr)

	WaitExitSignal()
}

func openDB(ctx context.Context, lgr *glog.BaseLogger) (*bun.DB, error) {
	cfg := persistenceConfig{
		driver: sqliteshim.ShimName,
		dsn:    os.Getenv("DSN"),
	}
	if cfg.dsn == "" {
		cfg.dsn = "file:registration.db?cache=shared"
	}

	sqldb, err := sql.Open(cfg.GetDriver(), cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*registration.User)(nil))
	persistence.RegisterModel((*registration.RegistrationProfile)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	client.SetLogger(lgr.GetLogger("persistence"))

	migrations, err := fs.Sub(registration.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "migrations failed")
	}

	return client.DB(), nil
}

// persistenceConfig satisfies the persistence client's config surface.
type persistenceConfig struct {
	driver string
	dsn    string
}

func (c persistenceConfig) GetDebug() bool    { return os.Getenv("DEBUG") != "" }
func (c persistenceConfig) GetDriver() string { return c.driver }
func (c persistenceConfig) GetServer() string { return c.dsn }
func (c persistenceConfig) GetDSN() string    { return c.dsn }

func (c persistenceConfig) GetOtelIdentifier() string { return "" }

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func buildNotifier(settings *registration.Settings) (registration.Notifier, error) {
	from, err := settings.FromEmail()
	if err != nil {
		return nil, err
	}

	days, err := settings.ActivationDays()
	if err != nil {
		return nil, err
	}

	opts := []registration.EmailNotifierOption{}
	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		opts = append(opts, registration.WithSender(registration.NewSMTPSender(addr, nil)))
	}

	return registration.NewEmailNotifier(from, days, opts...)
}

// loggerAdapter bridges glog's structured logger to the printf-style
// Logger the registration package expects.
type loggerAdapter struct {
	lgr glog.Logger
}

func (l loggerAdapter) Debug(format string, args ...any) { l.lgr.Debug(sprintf(format, args...)) }
func (l loggerAdapter) Info(format string, args ...any)  { l.lgr.Info(sprintf(format, args...)) }
func (l loggerAdapter) Error(format string, args ...any) { l.lgr.Error(sprintf(format, args...)) }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
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
