package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"backoffice/internal/catalog"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/fudo"
	"backoffice/internal/handlers"
	"backoffice/internal/sales"
	"backoffice/internal/screen"
	"backoffice/internal/server"
	"backoffice/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	reapInterval    = time.Minute
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the POS HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config.AppEnv)
		},
	}
}

func runServe(parent context.Context, cfg config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if parent == nil {
		parent = context.Background()
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("mongo disconnect error", zap.Error(err))
		}
	}()

	db := client.Database(cfg.DBName)
	logger.Info("mongo connected", zap.String("database", db.Name()))

	if err := database.EnsureCatalogIndexes(db, logger); err != nil {
		logger.Warn("catalog index warning", zap.Error(err))
	}
	if err := database.EnsureAuditIndexes(db, logger); err != nil {
		logger.Warn("audit index warning", zap.Error(err))
	}

	deps, registry, err := buildServerDeps(cfg, db, logger)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(gctx, reapInterval)
	})
	g.Go(func() error {
		logger.Info("pos api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func newLedger(cfg config.Config, logger *zap.Logger) (*fudo.Client, error) {
	return fudo.NewClient(fudo.ClientDeps{
		BaseURL: cfg.FudoAPIURL,
		AuthURL: cfg.FudoAuthURL,
		Credentials: fudo.Credentials{
			APIKey:    cfg.FudoAPIKey,
			APISecret: cfg.FudoAPISecret,
		},
		HTTPClient: &http.Client{Timeout: cfg.FudoHTTPTimeout},
		Logger:     logger.Named("fudo"),
	})
}

func buildServerDeps(cfg config.Config, db *mongo.Database, logger *zap.Logger) (server.Deps, *screen.Registry, error) {
	ledger, err := newLedger(cfg, logger)
	if err != nil {
		return server.Deps{}, nil, err
	}

	cache := catalog.NewCache(catalog.Deps{
		Repository: store.NewCatalog(db),
		TTL:        cfg.CatalogCacheTTL,
		Logger:     logger.Named("catalog"),
	})
	audit := store.NewAuditLogs(db)
	locations := store.NewLocations(db)

	submitter, err := sales.NewSubmitter(sales.SubmitterDeps{
		Ledger:             ledger,
		SaleLogs:           audit,
		Logger:             logger.Named("sales"),
		CashRegisterID:     cfg.FudoCashRegisterID,
		DefaultPartySize:   cfg.FudoDefaultPartySize,
		ExcludedPaymentTag: cfg.FudoExcludedTag,
	})
	if err != nil {
		return server.Deps{}, nil, err
	}

	remote, err := sales.NewRemoteOrders(sales.RemoteOrdersDeps{
		Gateway:   ledger,
		Locations: locations,
		Logs:      audit,
		Logger:    logger.Named("remote_orders"),
	})
	if err != nil {
		return server.Deps{}, nil, err
	}

	terminalLogger := logger.Named("terminal")
	registry, err := screen.NewRegistry(screen.RegistryDeps{
		NewTerminal: func(code string) (*screen.Terminal, error) {
			return screen.NewTerminal(screen.TerminalDeps{
				Code:      code,
				Channel:   screen.NewBus(0),
				Modifiers: cache,
				Sales:     submitter,
				Logger:    terminalLogger,
			})
		},
		IdleTimeout: cfg.TerminalIdleTimeout,
		Logger:      logger.Named("registry"),
	})
	if err != nil {
		return server.Deps{}, nil, err
	}

	return server.Deps{
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		Ping:           handlers.MongoPinger(db),
		Catalog:        cache,
		CatalogRefresh: cache,
		Sales:          submitter,
		RemoteOrders:   remote,
		Locations:      locations,
		SaleLogs:       audit,
		Sessions:       registry,
	}, registry, nil
}
