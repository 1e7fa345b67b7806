package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/byggekatalog/internal/admin"
	"github.com/HerbHall/byggekatalog/internal/catalog"
	"github.com/HerbHall/byggekatalog/internal/config"
	"github.com/HerbHall/byggekatalog/internal/logging"
	"github.com/HerbHall/byggekatalog/internal/metrics"
	"github.com/HerbHall/byggekatalog/internal/server"
	"github.com/HerbHall/byggekatalog/internal/services"
	"github.com/HerbHall/byggekatalog/internal/store"
	"github.com/HerbHall/byggekatalog/internal/version"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
)

//	@title			Byggekatalog API
//	@version		1.0
//	@description	Filterable catalog of building elements with building-regulation eligibility rules.
//	@BasePath		/api/v1
func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:      settings.Log.Level,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := serve(settings, logger); err != nil {
		logger.Fatal("byggekatalog stopped with error", zap.Error(err))
	}
}

func serve(settings config.Settings, logger *zap.Logger) error {
	logger.Info("byggekatalog starting", zap.String("version", version.Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	loaderOpts := []catalog.LoaderOption{
		catalog.WithPrimary(primarySource(settings)),
		catalog.WithEmbedded(pkgcatalog.NewEmbedded()),
		catalog.WithMetrics(m),
	}

	if settings.Cache.Path != "" {
		db, err := store.New(settings.Cache.Path)
		if err != nil {
			return fmt.Errorf("open snapshot cache: %w", err)
		}
		defer func() {
			if err := db.Checkpoint(context.Background()); err != nil {
				logger.Warn("snapshot cache checkpoint failed", zap.Error(err))
			}
			db.Close()
		}()

		snapshots, err := services.NewSQLiteSnapshotRepository(ctx, db)
		if err != nil {
			return fmt.Errorf("prepare snapshot cache: %w", err)
		}
		loaderOpts = append(loaderOpts, catalog.WithSnapshots(snapshots, settings.Catalog.KeepSnapshots))
	} else {
		logger.Info("snapshot cache disabled")
	}

	loader := catalog.NewLoader(logger.Named("loader"), loaderOpts...)
	products := catalog.NewStore(m)
	products.Apply(loader.Load(ctx))

	surface, err := pkgcatalog.DefaultSurface()
	if err != nil {
		return fmt.Errorf("load facet surface: %w", err)
	}

	catalogHandler := catalog.NewHandler(products, surface, logger.Named("catalog"), m)
	adminHandler := admin.NewHandler(
		admin.NewFileWriter(settings.Catalog.Path),
		products,
		logger.Named("admin"),
		admin.WithRateLimit(settings.Admin.RateLimit, settings.Admin.Burst),
		admin.WithSnapshots(loader),
		admin.WithMetrics(m),
	)

	srv := server.New(settings.Addr(), logger.Named("server"), m, catalogHandler, adminHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("byggekatalog ready",
		zap.String("addr", settings.Addr()),
		zap.String("catalog_source", products.Source()),
		zap.Int("products", products.Len()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				res := loader.Load(ctx)
				products.Apply(res)
				logger.Info("catalog reloaded",
					zap.String("source", res.Source),
					zap.Int("products", len(res.Products)),
				)
				continue
			}

			logger.Info("received shutdown signal", zap.String("signal", sig.String()))

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
			}
			logger.Info("byggekatalog stopped")
			return nil
		}
	}
}

// primarySource picks the HTTP source when a catalog URL is configured and
// the catalog file otherwise.
func primarySource(settings config.Settings) catalog.Source {
	if settings.Catalog.URL != "" {
		return &catalog.HTTPSource{
			URL:     settings.Catalog.URL,
			Timeout: settings.Catalog.FetchTimeout,
		}
	}
	return &catalog.FileSource{Path: settings.Catalog.Path}
}
