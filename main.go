package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"falcaoProAPI/handlers"
	"falcaoProAPI/internal/auth"
	"falcaoProAPI/internal/config"
	"falcaoProAPI/internal/logging"
	"falcaoProAPI/internal/notification"
	"falcaoProAPI/internal/realtime"
	"falcaoProAPI/internal/redis"
	"falcaoProAPI/internal/workers"
	"falcaoProAPI/middleware"
	"falcaoProAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	middleware.InitPrometheus(prometheus.DefaultRegisterer)

	var (
		router  *mux.Router
		cleanup func()
	)

	if cfg.BackendConfigured() {
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		router = a.router()
		cleanup = a.close
	} else {
		logger.Warn("DATABASE_URL or auth secret missing, starting in disabled mode",
			"auth_provider", cfg.AuthProvider,
		)
		router = disabledRouter(cfg)
		cleanup = func() {}
	}
	defer cleanup()

	limiter := middleware.NewRateLimiter(5, 30).Exempt("/monetize-webhook")
	go limiter.Cleanup(ctx)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", handlers.SignatureHeader}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", middleware.PaymentStatusHeader}),
		gorillaHandlers.AllowCredentials(),
	)

	handler := gorillaHandlers.CombinedLoggingHandler(os.Stdout, corsHandler(limiter.Middleware(router)))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server shutdown complete")
	return nil
}

type app struct {
	cfg    config.Config
	logger *slog.Logger

	db    *pgxpool.Pool
	rdb   *goredis.Client
	guard *middleware.SessionGuard

	broker        *realtime.Broker
	notifications *services.NotificationService

	system       *handlers.SystemHandler
	users        *handlers.UserHandler
	activities   *handlers.ActivityHandler
	stats        *handlers.StatsHandler
	discord      *handlers.DiscordHandler
	support      *handlers.SupportHandler
	notification *handlers.NotificationHandler
	admin        *handlers.AdminHandler
	webhook      *handlers.WebhookHandler

	stopBackground context.CancelFunc
}

func newDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func newVerifier(cfg config.Config) (auth.Verifier, error) {
	if cfg.AuthProvider == config.AuthProviderClerk {
		return auth.NewClerkVerifier(cfg.ClerkSecretKey)
	}
	return auth.NewSupabaseVerifier(cfg.SupabaseJWTSecret)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	db, err := newDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	verifier, err := newVerifier(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	a := &app{cfg: cfg, logger: logger, db: db, stopBackground: stopBackground}

	a.broker = realtime.NewBroker(logger)
	if cfg.RedisURL != "" {
		rdb, err := redis.New(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, discord status stays local to this instance", "error", err)
		} else {
			a.rdb = rdb
			relay := realtime.NewRedisRelay(rdb, logger)
			a.broker.SetRelay(relay)

			go relay.Run(bgCtx, a.broker)
		}
	}

	a.notifications = services.NewNotificationService(db, logger)
	fcm, err := notification.NewFCMService(ctx, cfg.FCMCredentialsJSON, cfg.FCMCredentialsFile, logger)
	if err != nil {
		logger.Warn("push notifications disabled", "error", err)
	} else {
		a.notifications.SetPushProvider(fcm)
		logger.Info("FCM push provider initialized")
	}

	userService := services.NewUserService(db, logger)
	activityService := services.NewActivityService(db, a.notifications, logger)
	statsService := services.NewStatsService(db, time.UTC)
	discordService := services.NewDiscordService(db, a.broker)
	supportService := services.NewSupportService(db)
	adminService := services.NewAdminService(db)
	subscriptionStore := services.NewPostgresSubscriptionStore(db)
	paymentService := services.NewPaymentService(subscriptionStore, cfg.RefundRevokesAccess, logger)

	sweeper := workers.NewSubscriptionSweeper(subscriptionStore, a.notifications, time.Hour, logger)
	go sweeper.Run(bgCtx)

	if current, err := discordService.Get(ctx); err != nil {
		logger.Warn("could not load discord status", "error", err)
	} else {
		a.broker.Deliver(*current)
	}

	if cfg.AuthProvider == config.AuthProviderSupabase && !cfg.SupabaseProjectConfigured() {
		logger.Warn("SUPABASE_URL or SUPABASE_ANON_KEY invalid, hosted login pages will not reach the project",
			"supabase_url", cfg.SupabaseURL,
			"anon_key", logging.MaskToken(cfg.SupabaseAnonKey),
		)
	}

	if cfg.MonetizeWebhookSecret == "" {
		logger.Warn("MONETIZE_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}

	a.guard = middleware.NewSessionGuard(verifier, userService, logger)
	a.system = handlers.NewSystemHandler(db)
	a.users = handlers.NewUserHandler()
	a.activities = handlers.NewActivityHandler(activityService, logger)
	a.stats = handlers.NewStatsHandler(statsService, logger)
	a.discord = handlers.NewDiscordHandler(discordService, a.broker, cfg.CORSOrigins, logger)
	a.support = handlers.NewSupportHandler(supportService, logger)
	a.notification = handlers.NewNotificationHandler(a.notifications, logger)
	a.admin = handlers.NewAdminHandler(activityService, discordService, adminService, supportService, logger)
	a.webhook = handlers.NewWebhookHandler(paymentService, cfg.MonetizeWebhookSecret, logger)

	return a, nil
}

func (a *app) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(a.cfg.MetricsUser, a.cfg.MetricsPass)(promhttp.Handler())).Methods("GET")
	r.HandleFunc("/health", a.system.Health).Methods("GET")
	r.HandleFunc("/monetize-webhook", a.webhook.HandleMonetizeWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 (REQUIRE SESSION)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(a.guard.RequireSession)

	api.HandleFunc("/me", a.users.GetMe).Methods("GET")
	api.HandleFunc("/me/payment-status", a.users.GetPaymentStatus).Methods("GET")
	api.HandleFunc("/discord", a.discord.GetStatus).Methods("GET")
	api.HandleFunc("/discord/ws", a.discord.StreamStatus).Methods("GET")
	api.HandleFunc("/support/messages", a.support.SendMessage).Methods("POST")
	api.HandleFunc("/notifications/register-device", a.notification.RegisterDevice).Methods("POST")

	paid := api.PathPrefix("").Subrouter()
	paid.Use(a.guard.RequireActiveSubscription)

	paid.HandleFunc("/activities", a.activities.ListActivities).Methods("GET")
	paid.HandleFunc("/activities/{id}/complete", a.activities.CompleteActivity).Methods("POST")
	paid.HandleFunc("/activities/{id}/complete", a.activities.ReopenActivity).Methods("DELETE")
	paid.HandleFunc("/stats", a.stats.GetStats).Methods("GET")
	paid.HandleFunc("/stats/delay-profit", a.stats.AddDelayProfit).Methods("POST")
	paid.HandleFunc("/stats/delay-profit/{id}", a.stats.RemoveDelayProfit).Methods("DELETE")

	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(a.guard.RequireAdmin)

	adminAPI.HandleFunc("/activities", a.admin.BroadcastActivity).Methods("POST")
	adminAPI.HandleFunc("/discord", a.admin.UpdateDiscord).Methods("PUT")
	adminAPI.HandleFunc("/overview", a.admin.GetOverview).Methods("GET")
	adminAPI.HandleFunc("/support/messages", a.admin.ListSupportMessages).Methods("GET")
	adminAPI.HandleFunc("/support/messages/{id}/read", a.admin.MarkSupportMessageRead).Methods("PUT")

	// -------------------------------------------------------------------------
	// PAGES
	// -------------------------------------------------------------------------
	registerStatic(r, a.cfg.WebDir)

	pages := r.PathPrefix("/").Subrouter()
	pages.Use(a.guard.Pages)
	registerPages(pages, a.cfg.WebDir)

	return r
}

func registerPages(r *mux.Router, webDir string) {
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(webDir, name))
		}
	}

	r.HandleFunc("/", page("index.html")).Methods("GET")
	r.HandleFunc("/auth", page("auth.html")).Methods("GET")
	r.HandleFunc("/admin", page("admin.html")).Methods("GET")
	r.PathPrefix("/admin/").HandlerFunc(page("admin.html")).Methods("GET")
}

// registerStatic serves assets without a session lookup.
func registerStatic(r *mux.Router, webDir string) {
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(webDir, "static")))))
}

// disabledRouter keeps the process up and observable without a backend.
func disabledRouter(cfg config.Config) *mux.Router {
	system := handlers.NewSystemHandler(nil)

	r := mux.NewRouter()
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler())).Methods("GET")
	r.HandleFunc("/health", system.Health).Methods("GET")
	r.HandleFunc("/monetize-webhook", system.Disabled)
	r.PathPrefix("/api/").HandlerFunc(system.Disabled)
	registerStatic(r, cfg.WebDir)
	registerPages(r, cfg.WebDir)

	return r
}

func (a *app) close() {
	a.stopBackground()
	a.notifications.Stop()
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.db.Close()
	a.logger.Info("closed database connection pool")
}
