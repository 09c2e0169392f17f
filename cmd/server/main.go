// Command keepsake-server starts the catalog HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/keepsake/internal/auth"
	"github.com/and161185/keepsake/internal/config"
	"github.com/and161185/keepsake/internal/limiter"
	"github.com/and161185/keepsake/internal/migrate"
	"github.com/and161185/keepsake/internal/ratelimit"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/and161185/keepsake/internal/repository/memory"
	"github.com/and161185/keepsake/internal/repository/postgres"
	httpserver "github.com/and161185/keepsake/internal/server/http"
	"github.com/and161185/keepsake/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type stores struct {
	users       repository.UserRepository
	collections repository.CollectionRepository
	tags        repository.TagRepository
	tokens      repository.TokenRepository
	comments    repository.CommentRepository
	lim         limiter.Limiter
	ping        func(context.Context) error
	close       func()
}

// main loads configuration, runs migrations and serves HTTP until SIGINT/SIGTERM.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer st.close()

	signer := auth.NewSigner([]byte(cfg.JWTKey), cfg.AccessTTL)
	ledger := service.NewLedger(st.tokens, signer, logger.Named("ledger"))
	tagSvc := service.NewTagService(st.tags)
	members := service.NewMembership(st.users)

	authLimiter := ratelimit.New(ratelimit.PerInterval(cfg.AuthPerMinute, time.Minute), cfg.AuthBurst, 10*time.Minute)
	defer authLimiter.Stop()

	app := httpserver.New(httpserver.Deps{
		Users:       service.NewUserService(st.users, signer, st.lim, ledger),
		Collections: service.NewCollectionService(st.collections, tagSvc, members),
		Tags:        tagSvc,
		Comments:    service.NewCommentService(st.comments),
		Gate:        service.NewGate(ledger, signer, st.users),
		Ping:        st.ping,
		AuthLimiter: authLimiter,
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger,
	})

	go ledger.RunSweeper(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forced shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// openStores connects to Postgres when dsn is set and falls back to memory otherwise.
func openStores(ctx context.Context, dsn string, logger *zap.Logger) (*stores, error) {
	if dsn == "" {
		logger.Warn("no database configured, data is kept in memory")
		users := memory.NewUsers()
		return &stores{
			users:       users,
			collections: memory.NewCollections(),
			tags:        memory.NewTags(),
			tokens:      memory.NewTokens(),
			comments:    memory.NewComments(),
			lim:         limiter.Nop{},
			close:       func() {},
		}, nil
	}

	if err := migrate.Up(ctx, dsn); err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:       postgres.NewUserRepo(db),
		collections: postgres.NewCollectionRepo(db),
		tags:        postgres.NewTagRepo(db),
		tokens:      postgres.NewTokenRepo(db),
		comments:    postgres.NewCommentRepo(db),
		lim:         limiter.NewPG(db.Pool, limiter.DefaultPolicy),
		ping:        db.Ping,
		close:       db.Close,
	}, nil
}
