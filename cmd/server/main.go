package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/auth"
	"github.com/quaynav/quay/internal/backup"
	"github.com/quaynav/quay/internal/config"
	"github.com/quaynav/quay/internal/database"
	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/policy"
	"github.com/quaynav/quay/internal/remote"
	"github.com/quaynav/quay/internal/restore"
	"github.com/quaynav/quay/internal/retention"
	"github.com/quaynav/quay/internal/vault"
)

// Dashboard API server with the backup lifecycle built in
func main() {
	cfgPath := envDefault("CONFIG_PATH", "/etc/quay/config.yaml")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.InitDB(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer db.Close()

	logger := logging.New(db.GetDB(), os.Stdout)

	archives, err := archive.NewStore(cfg.BackupDir)
	if err != nil {
		log.Fatalf("init backup store: %v", err)
	}

	policies, err := policy.NewStore(cfg.PolicyPath())
	if err != nil {
		log.Fatalf("init backup policy: %v", err)
	}

	v, err := vault.New(cfg.VaultSecret)
	if err != nil {
		log.Fatalf("init credential vault: %v", err)
	}
	creds := vault.NewCredentialStore(cfg.CredentialPath(), v)

	remoteClient := remote.NewClient(creds, cfg.RemoteDir, logger.WithComponent("remote"))
	cleaner := retention.NewCleaner(cfg.BackupDir, logger.WithComponent("retention"))

	svc := backup.New(policies, archives, cleaner, remoteClient, cfg.Sources, logger)
	svc.Start()
	defer svc.Stop()

	engine := restore.NewEngine(archives, cfg.Sources, logger.WithComponent("restore"))

	authn := auth.New(cfg.AuthPassword)

	r := newRouter(cfg, &app{
		db:       db,
		logger:   logger,
		archives: archives,
		policies: policies,
		creds:    creds,
		remote:   remoteClient,
		svc:      svc,
		engine:   engine,
		auth:     authn,
	})

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	go func() {
		logger.WithComponent("server").Info("listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.WithComponent("server").Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// loadConfig falls back to built-in defaults when no config file exists,
// so the server can run from a bare data directory.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("no config at %s, using defaults", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

// app bundles the wired components the handlers close over
type app struct {
	db       *database.DB
	logger   *logging.Logger
	archives *archive.Store
	policies *policy.Store
	creds    *vault.CredentialStore
	remote   *remote.Client
	svc      *backup.Service
	engine   *restore.Engine
	auth     *auth.Auth
}

func newRouter(cfg *config.Config, a *app) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	corsOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	corsOrigins = append(corsOrigins, cfg.CORSOrigins...)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth(a))
		r.Post("/auth/login", handleLogin(a.auth))

		// Everything below requires a valid session when auth is enabled
		r.Group(func(r chi.Router) {
			r.Use(a.auth.Middleware)

			r.Post("/auth/logout", handleLogout(a.auth))

			r.Route("/menus", func(r chi.Router) {
				r.Get("/", handleListMenus(a))
				r.Post("/", handleCreateMenu(a))
				r.Put("/{id}", handleUpdateMenu(a))
				r.Delete("/{id}", handleDeleteMenu(a))
			})
			r.Route("/cards", func(r chi.Router) {
				r.Get("/", handleListCards(a))
				r.Post("/", handleCreateCard(a))
				r.Put("/{id}", handleUpdateCard(a))
				r.Delete("/{id}", handleDeleteCard(a))
			})
			r.Route("/tags", func(r chi.Router) {
				r.Get("/", handleListTags(a))
				r.Post("/", handleCreateTag(a))
				r.Put("/{id}", handleUpdateTag(a))
				r.Delete("/{id}", handleDeleteTag(a))
			})

			r.Route("/backup", func(r chi.Router) {
				r.Post("/create", handleCreateBackup(a))
				r.Get("/list", handleListBackups(a))
				r.Get("/download/{name}", handleDownloadBackup(a))
				r.Delete("/delete/{name}", handleDeleteBackup(a))
				r.Post("/upload", handleUploadBackup(a))
				r.Post("/restore/{name}", handleRestoreBackup(a))
				r.Get("/stats", handleBackupStats(a))
				r.Get("/policy", handleGetPolicy(a))
				r.Put("/policy", handleUpdatePolicy(a))

				r.Route("/webdav", func(r chi.Router) {
					r.Get("/config", handleGetRemoteConfig(a))
					r.Put("/config", handleSetRemoteConfig(a))
					r.Delete("/config", handleClearRemoteConfig(a))
					r.Get("/list", handleListRemote(a))
					r.Post("/sync/{name}", handleSyncToRemote(a))
					r.Post("/restore/{name}", handleRestoreFromRemote(a))
					r.Delete("/{name}", handleDeleteRemote(a))
				})
			})

			r.Get("/logs", handleGetLogs(a))
		})
	})

	return r
}

func envDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
