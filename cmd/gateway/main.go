package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	migrationsdb "github.com/streamvault/mediagate/db"
	"github.com/streamvault/mediagate/internal/catalog"
	"github.com/streamvault/mediagate/internal/config"
	"github.com/streamvault/mediagate/internal/db"
	"github.com/streamvault/mediagate/internal/fetch"
	"github.com/streamvault/mediagate/internal/handlers"
	"github.com/streamvault/mediagate/internal/ingest"
	"github.com/streamvault/mediagate/internal/logger"
	"github.com/streamvault/mediagate/internal/origin"
	"github.com/streamvault/mediagate/internal/pathmap"
	"github.com/streamvault/mediagate/internal/quota"
	"github.com/streamvault/mediagate/internal/remotefs"
	"github.com/streamvault/mediagate/internal/server"
	"github.com/streamvault/mediagate/internal/staging"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideDirectory(log *slog.Logger, store *catalog.Store, cfg config.Config) *origin.Directory {
	return origin.NewDirectory(log, store, cfg.Origin)
}

func provideTranslator(cfg config.Config) *pathmap.Translator {
	return pathmap.NewTranslator(cfg.Origin)
}

func provideFetcher(log *slog.Logger, cfg config.Config) *fetch.Fetcher {
	return fetch.NewFetcher(log, cfg.Origin, cfg.Storage)
}

func provideLedger(log *slog.Logger, store *catalog.Store) *quota.Ledger {
	return quota.NewLedger(log, store)
}

func provideTransport(lc fx.Lifecycle, log *slog.Logger, store *catalog.Store) remotefs.Transport {
	transport := remotefs.NewSFTPTransport(log, store)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return transport.Close()
		},
	})
	return transport
}

func provideStagingArea(log *slog.Logger, cfg config.Config) *staging.Area {
	return staging.NewArea(log, cfg.Storage)
}

func provideIngestService(log *slog.Logger, store *catalog.Store, ledger *quota.Ledger,
	transport remotefs.Transport, directory *origin.Directory, translator *pathmap.Translator,
	cfg config.Config,
) *ingest.Service {
	return ingest.NewService(log, store, ledger, transport, directory, translator, cfg.Storage)
}

func provideServer(log *slog.Logger, cfg config.Config, serverHandlers []server.Handler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, serverHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func startServer(lc fx.Lifecycle, srv *server.Server, log *slog.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func runMigrate(args []string) error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	log := provideLogger(cfg)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrations, err := fs.Sub(migrationsdb.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(log, cfg.Postgres, migrations, command, args)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBPool,

			catalog.NewStore,
			provideDirectory,
			provideTranslator,
			provideFetcher,
			provideLedger,
			provideTransport,
			provideStagingArea,
			provideIngestService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewContentHandler),
			provideServerHandler(handlers.NewVideosHandler),

			fx.Annotate(provideServer, fx.ParamTags("", "", `group:"server_handlers"`)),
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
		fx.StartTimeout(30*time.Second),
	).Run()
}
