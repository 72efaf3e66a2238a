package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sadoj/intel-backend/internal/auth"
	"github.com/sadoj/intel-backend/internal/config"
	"github.com/sadoj/intel-backend/internal/db"
	"github.com/sadoj/intel-backend/internal/intelligence"
	"github.com/sadoj/intel-backend/internal/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := auth.Bootstrap(gdb, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	store, err := sessionStore(ctx, cfg, gdb)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           newRouter(cfg, gdb, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server listening on port :%s...", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sessionStore(ctx context.Context, cfg config.Config, gdb *gorm.DB) (auth.SessionStore, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return auth.NewGormSessionStore(gdb), nil
	}

	client := auth.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	logrus.Infof("Using redis session store at %s", cfg.RedisAddr)
	return auth.NewRedisSessionStore(client), nil
}

func newRouter(cfg config.Config, gdb *gorm.DB, store auth.SessionStore) http.Handler {
	sessions := auth.SessionInfo{Store: store, TTL: cfg.SessionTTL, Secure: cfg.CookieSecure}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.AccessLogger(logrus.StandardLogger()))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "Server is up!")
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := gdb.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	authHandler := auth.NewHandler(gdb, store, cfg.SessionTTL, cfg.CookieSecure)
	r.Mount("/auth", auth.SetupRoutes(authHandler, sessions, auth.UserRoles{DB: gdb},
		middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)))

	intelHandler := intelligence.NewHandler(intelligence.NewService(gdb))
	r.Mount("/api", intelligence.SetupRoutes(intelHandler, sessions))

	return r
}
