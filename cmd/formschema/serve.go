package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/internal/config"
	"github.com/goliatone/go-formschema/pkg/httpapi"
	"github.com/goliatone/go-formschema/pkg/mcpserver"
	"github.com/goliatone/go-formschema/pkg/store"
)

// openStore builds the configured store. The returned close func is never nil.
func (e *app) openStore(ctx context.Context) (store.Store, func(), error) {
	if e.cfg.Database.Driver == config.DriverMemory {
		return store.NewMemoryStore(), func() {}, nil
	}

	dialect, err := store.ParseDialect(e.cfg.Database.Driver)
	if err != nil {
		return nil, func() {}, err
	}
	sqlStore, err := store.Open(dialect, e.cfg.Database.DataSource(), e.logger)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := sqlStore.Close(); err != nil {
			e.logger.Warn("close store", zap.Error(err))
		}
	}
	if err := sqlStore.Migrate(ctx); err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("migrate: %w", err)
	}
	return sqlStore, closeFn, nil
}

func runServe(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	addr := fs.String("addr", "", "listen address (overrides config)")
	grace := fs.Duration("grace", 5*time.Second, "shutdown grace period")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()
	if *addr != "" {
		env.cfg.Server.Address = *addr
	}

	forms, closeStore, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	server := httpapi.NewServer(
		httpapi.WithBasePath(env.cfg.Server.BasePath),
		httpapi.WithServiceName(env.cfg.Server.ServiceName),
		httpapi.WithStore(forms),
		httpapi.WithValidator(env.validator()),
		httpapi.WithCompilerOptions(env.compilerOptions()...),
		httpapi.WithLogger(env.logger),
	)

	httpServer := &http.Server{
		Addr:              env.cfg.Server.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: env.cfg.Server.ReadTimeout,
		ReadTimeout:       env.cfg.Server.ReadTimeout,
	}

	env.logger.Info("listening",
		zap.String("address", env.cfg.Server.Address),
		zap.String("basePath", env.cfg.Server.BasePath),
		zap.String("database", env.cfg.Database.Driver),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		env.logger.Warn("shutdown", zap.Error(err))
	}
	return nil
}

func runMCP(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	return mcpserver.Run(ctx,
		mcpserver.WithVersion(version),
		mcpserver.WithLoader(env.loader()),
		mcpserver.WithValidator(env.validator()),
		mcpserver.WithCompilerOptions(env.compilerOptions()...),
		mcpserver.WithLogger(env.logger),
	)
}
