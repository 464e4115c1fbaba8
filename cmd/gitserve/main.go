package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/adapter/driven/gitcli"
	sqliteadapter "github.com/Team-mobabi/backend-sub000/internal/adapter/driven/sqlite"
	httphandler "github.com/Team-mobabi/backend-sub000/internal/adapter/driving/http"
	"github.com/Team-mobabi/backend-sub000/internal/application"
	"github.com/Team-mobabi/backend-sub000/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"data_root", cfg.DataRoot,
		"git_timeout", cfg.GitTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Locate the git binary.
	git, err := gitcli.New(cfg.GitTimeout)
	if err != nil {
		return err
	}

	// 6. Wire stores.
	repoStore := sqliteadapter.NewRepoRepo(db)
	userStore := sqliteadapter.NewUserRepo(db)
	grantStore := sqliteadapter.NewCollabRepo(db)
	prStore := sqliteadapter.NewPRRepo(db)
	reviewStore := sqliteadapter.NewReviewRepo(db)

	// 7. Build the engine. The resolver is the single authorization and
	// workspace choke point every service goes through.
	resolver := application.NewResolver(repoStore, userStore, grantStore, git, cfg.WorkspacesRoot())
	branchSvc := application.NewBranchService(resolver, git)
	syncSvc := application.NewSyncService(resolver, git)

	apiHandler := httphandler.NewHandler(
		application.NewRepoService(repoStore, resolver, git, cfg.ReposRoot()),
		application.NewCollabService(resolver, userStore, grantStore),
		branchSvc,
		application.NewGraphService(resolver, git),
		application.NewWorktreeService(resolver, git),
		syncSvc,
		application.NewConflictService(resolver, branchSvc, syncSvc, git, nil),
		application.NewPRService(resolver, branchSvc, git, prStore, reviewStore),
		application.NewDiffService(resolver, git),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("gitserve started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal, then drain in-flight requests. Git
	// operations can run long, so the drain window exceeds the git timeout.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GitTimeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
