package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bigfish/internal/handler"
	"bigfish/internal/hub"
	"bigfish/internal/loader"
	"bigfish/internal/service"
	"bigfish/internal/watcher"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store, err := open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore(store)

	eventBus := service.NewEventBus()
	sseHub := hub.New(logger)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	defer eventBus.Unsubscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(event)
			case <-ctx.Done():
				return
			}
		}
	}()

	mvpSvc := service.NewMvpService(store, eventBus, logger)
	userSvc := service.NewUserService(store, eventBus, logger)

	if cfg.Server.Catalog != "" {
		importCatalog(ctx, mvpSvc, cfg.Server.Catalog)
		if cfg.Server.WatchCatalog {
			w := watcher.New(cfg.Server.Catalog, func() { importCatalog(ctx, mvpSvc, cfg.Server.Catalog) }, logger)
			go func() {
				if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("catalog watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	router := handler.NewRouter(handler.Routes{
		Mvps:       handler.NewMvpHandler(mvpSvc, logger),
		Users:      handler.NewUserHandler(userSvc, logger),
		Events:     sseHub,
		CORSOrigin: cfg.Server.CORSOrigin,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: SSE responses stay open
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.Stringer("store", cfg.Store))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return pkgerrors.Wrap(err, "server error")
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return pkgerrors.Wrap(err, "server shutdown")
	}
	logger.Info("server stopped")
	return nil
}

func importCatalog(ctx context.Context, svc *service.MvpService, path string) {
	entries, err := loader.LoadCatalog(path)
	if err != nil {
		logger.Error("failed to load catalog", zap.String("path", path), zap.Error(err))
		return
	}
	if _, err := svc.ImportCatalog(ctx, entries); err != nil {
		logger.Error("failed to import catalog", zap.String("path", path), zap.Error(err))
	}
}
