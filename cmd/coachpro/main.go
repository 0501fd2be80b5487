package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/coachpro/go-auth/config"
	"github.com/coachpro/go-auth/logging"
	"github.com/coachpro/go-auth/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "coachpro:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var logger logging.Logger
	if cfg.Debug {
		logger = logging.NewConsole(cfg.LogLevel)
	} else {
		logger = logging.NewZerolog(os.Stderr, cfg.LogLevel)
	}

	fmt.Println("======= COACHPRO CONFIG ======")
	fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
	fmt.Println("==============================")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persistent, closePersistent, err := persistentBackend(ctx, cfg, logger.Named("store"))
	if err != nil {
		return err
	}
	defer closePersistent()

	memory, err := repository.NewMemoryStore(ctx, cfg.Auth.GetSessionScopeTTL())
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer memory.Close()

	var session auth.ScopeBackend = memory
	if cfg.SealingSecret != "" {
		sealedPersistent, err := repository.NewSealedStore(persistent, []byte(cfg.SealingSecret))
		if err != nil {
			return err
		}
		sealedSession, err := repository.NewSealedStore(session, []byte(cfg.SealingSecret))
		if err != nil {
			return err
		}
		persistent, session = sealedPersistent, sealedSession
	}

	manager, err := auth.NewManager(cfg.Auth, persistent, session,
		auth.WithLogger(logger.Named("auth")),
		auth.WithActivitySink(auth.LoggerActivitySink{Logger: logger.Named("activity")}),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	auther, err := auth.NewHTTPAuthenticator(manager)
	if err != nil {
		return err
	}

	srv := auth.NewFiberServer(func(c *fiber.Config) {
		c.DisableStartupMessage = !cfg.Debug
	})

	auth.UseDefaultMiddleware(srv.WrappedRouter(), cfg.Auth)
	srv.WrappedRouter().Use(logging.RequestLogger(logger.Named("http")))

	r := srv.Router()
	auth.RegisterAuthRoutes(r,
		auth.WithAuthenticator(auther),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithPhoneRegion(cfg.PhoneRegion),
	)

	r.Get("/", func(c router.Context) error {
		return c.Redirect(cfg.Auth.GetDefaultRedirect(), router.StatusFound)
	}).SetName("home")

	srv.Init()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errc <- srv.Serve(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func persistentBackend(ctx context.Context, cfg config.Config, logger logging.Logger) (auth.ScopeBackend, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPass,
			DB:       cfg.Store.RedisDB,
		})
		store := repository.NewRedisStore(client, cfg.Store.RedisPrefix)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("redis connected", "addr", cfg.Store.RedisAddr)

		return store, func() { _ = client.Close() }, nil

	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Store.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())

		store := repository.NewBunStore(db)
		if err := store.CreateTable(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create envelope table: %w", err)
		}

		purgeCtx, cancel := context.WithCancel(ctx)
		go purgeLoop(purgeCtx, store, cfg.Store.PurgeEvery, logger)

		return store, func() {
			cancel()
			_ = db.Close()
		}, nil
	}
}

func purgeLoop(ctx context.Context, store *repository.BunStore, every time.Duration, logger logging.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Error("purge expired envelopes", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired envelopes", "count", n)
			}
		}
	}
}
