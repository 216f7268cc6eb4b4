// cmd/meme-worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"meme-workers/internal/api"
	"meme-workers/internal/catalog"
	"meme-workers/internal/common/browser"
	"meme-workers/internal/common/camunda"
	"meme-workers/internal/common/config"
	"meme-workers/internal/common/database"
	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/common/imagesearch"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/common/memegen"
	"meme-workers/internal/common/observability"
	"meme-workers/internal/common/sticker"
	"meme-workers/internal/common/storage"
	"meme-workers/internal/dispatch"
	"meme-workers/internal/guardrail"
	fkc "meme-workers/internal/workers/meme/fetch-key-context"
	gm "meme-workers/internal/workers/meme/generate-meme"
	pm "meme-workers/internal/workers/meme/parse-message"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting meme worker",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("meme worker failed", zap.Error(err))
	}
	zapLog.Info("Meme worker stopped")
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			log.Warn("observability shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Template catalog ---
	src, closer, err := catalogSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	cat, err := catalog.Load(ctx, src)
	if err != nil {
		return err
	}
	log.Info("template catalog loaded", map[string]interface{}{
		"source":    src.Name(),
		"templates": cat.Len(),
	})

	// --- Content policy ---
	var policy guardrail.Policy = guardrail.AllowAll
	if cfg.Guardrail.Enabled {
		kp, err := guardrail.NewKeywordPolicy(cfg.Guardrail.BlockedTerms...)
		if err != nil {
			return fmt.Errorf("guardrail setup: %w", err)
		}
		policy = kp
	} else {
		log.Warn("guardrail disabled", nil)
	}

	// --- Collaborators ---
	apis := cfg.APIs
	deps := dispatch.Deps{
		Catalog: cat,
		Search: imagesearch.NewClient(imagesearch.Config{
			BaseURL:  apis.ImageSearch.BaseURL,
			APIKey:   apis.ImageSearch.APIKey,
			EngineID: apis.ImageSearch.EngineID,
			Num:      apis.ImageSearch.Num,
			CacheTTL: config.GetDuration(apis.ImageSearch.CacheTTL),
		}, httpclient.NewClient(config.GetDuration(apis.ImageSearch.Timeout))),
		Renderer: memegen.NewClient(memegen.Config{
			BaseURL: apis.Memegen.BaseURL,
			Format:  apis.Memegen.Format,
			Verify:  apis.Memegen.Verify,
		}, httpclient.NewClient(config.GetDuration(apis.Memegen.Timeout))),
		Persister: storage.NewDownloader(cfg.PostProcessing.SaveDir,
			httpclient.NewClient(config.GetDuration(cfg.PostProcessing.DownloadTimeout))),
	}
	if apis.Sticker.BaseURL != "" {
		deps.Sticker = sticker.NewClient(sticker.Config{
			BaseURL:  apis.Sticker.BaseURL,
			APIKey:   apis.Sticker.APIKey,
			Platform: apis.Sticker.Platform,
		}, httpclient.NewClient(config.GetDuration(apis.Sticker.Timeout)))
	} else {
		log.Warn("sticker conversion not configured", nil)
	}
	if cfg.PostProcessing.OpenBrowser {
		deps.Opener = browser.NewOpener()
	}
	engine := dispatch.NewEngine(deps, log)

	// --- Tools ---
	fetch, err := fkc.NewHandler(fkc.HandlerOptions{
		Config:        fkc.FromAppConfig(cfg),
		Catalog:       cat,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		return err
	}
	parse, err := pm.NewHandler(pm.HandlerOptions{
		Config:        pm.FromAppConfig(cfg),
		Catalog:       cat,
		Policy:        policy,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		return err
	}
	generate, err := gm.NewHandler(gm.HandlerOptions{
		Config:        gm.FromAppConfig(cfg),
		Dispatcher:    engine,
		Policy:        policy,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		return err
	}

	// --- Camunda job workers ---
	var health api.HealthChecker
	if cfg.Camunda.BrokerAddress != "" {
		zb, err := camunda.NewClient(ctx, camunda.ConfigFromApp(cfg.Camunda))
		if err != nil {
			return fmt.Errorf("camunda client: %w", err)
		}
		defer zb.Close()
		health = zb

		pool := camunda.NewPool(zb.GetClient(), log)
		defer pool.Stop()

		pool.Start(fkc.TaskType, config.GetWorkerConfig(cfg, fkc.TaskType), fetch)
		pool.Start(pm.TaskType, config.GetWorkerConfig(cfg, pm.TaskType), parse)
		pool.Start(gm.TaskType, config.GetWorkerConfig(cfg, gm.TaskType), generate)

		log.Info("job workers registered", map[string]interface{}{"workers": pool.Running()})
	} else {
		log.Info("camunda broker not configured, serving HTTP tools only", nil)
	}

	// --- HTTP tool API ---
	h := api.NewHandler(api.HandlerOptions{
		Fetch:    fetch,
		Parse:    parse,
		Generate: generate,
		Camunda:  health,
		Catalog:  cat,
		Version:  cfg.App.Version,
		Logger:   log,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(h, log, nil),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("tool API listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("tool API: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("tool API shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// catalogSource opens the configured catalog backend. The returned closer
// releases any connection the source holds.
func catalogSource(ctx context.Context, cfg *config.Config) (catalog.Source, io.Closer, error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourceHTTP:
		client := httpclient.NewClient(config.GetDuration(cfg.APIs.Memegen.Timeout))
		return catalog.NewHTTPSource(cfg.APIs.Memegen.BaseURL, client), nopCloser{}, nil

	case config.CatalogSourceRedis:
		rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewRedisSource(rdb, cfg.Catalog.RedisKey), rdb, nil

	case config.CatalogSourcePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src, err := catalog.NewPostgresSource(db, cfg.Catalog.Table)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return src, db, nil

	default:
		return catalog.NewFileSource(cfg.Catalog.Path), nopCloser{}, nil
	}
}
