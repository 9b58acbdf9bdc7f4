package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/compliance"
	"github.com/pestledger/registry/internal/email"
	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/health"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/internal/registry/handler"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/repository"
	"github.com/pestledger/registry/internal/registry/service"
	"github.com/pestledger/registry/internal/trustledger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("registry exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("registry")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("registry.port", 8080)
	viper.SetDefault("registry.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("registry.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.channel", events.DefaultChannel)
	viper.SetDefault("auth.key_file", "")
	viper.SetDefault("auth.token_ttl_seconds", 3600)
	viper.SetDefault("auth.issuer", "")
	viper.SetDefault("admin.principal", "")
	viper.SetDefault("chain.genesis_time", "")
	viper.SetDefault("chain.block_interval", "10s")
	viper.SetDefault("chain.start_height", 0)
	viper.SetDefault("webhooks.urls", []string{})
	viper.SetDefault("webhooks.secret", "")
	viper.SetDefault("email.recipients", []string{})
	viper.SetDefault("email.notice_types", []string{})
	viper.SetDefault("email.smtp_host", "")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.smtp_username", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from_address", "noreply@pestledger.local")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.New(health.Config{}, logger)
	checker.SetMetricsRecord(handler.RecordHealthCheck)

	// ── Storage ──────────────────────────────────────────────────────────────
	var (
		facilityRepo   facilityStore
		technicianRepo technicianStore
		adminRepo      adminRepository
		ledger         trustledger.Ledger
	)
	adminPrincipal := model.Principal(viper.GetString("admin.principal"))

	if dbURL := viper.GetString("database.url"); dbURL != "" {
		db, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		facilityRepo = repository.NewFacilityRepository(db)
		technicianRepo = repository.NewTechnicianRepository(db)
		pgAdmin := compliance.NewPostgresAdminRepo(db)
		if adminPrincipal != "" {
			if err := pgAdmin.Seed(ctx, adminPrincipal); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
		}
		adminRepo = pgAdmin
		ledger = trustledger.NewPostgresLedger(db, logger)
		checker.Add("postgres", db.Ping)
	} else {
		logger.Warn("database.url not set, using in-memory stores; state is lost on restart")
		facilityRepo = repository.NewMemoryFacilityStore()
		technicianRepo = repository.NewMemoryTechnicianStore()
		adminRepo = compliance.NewMemoryAdminRepo(adminPrincipal)
		ledger = trustledger.New()
	}
	ledger = handler.CountingLedger{Ledger: ledger}

	// ── Trust Ledger ──────────────────────────────────────────────────────────
	if err := ledger.Verify(ctx); err != nil {
		logger.Warn("trust ledger integrity check FAILED", zap.Error(err))
	} else {
		n, _ := ledger.Len(ctx)
		root, _ := ledger.Root(ctx)
		logger.Info("trust ledger verified",
			zap.Int("entries", n),
			zap.String("root", root),
		)
	}

	// ── Chain clock ───────────────────────────────────────────────────────────
	clock, err := newClock()
	if err != nil {
		return fmt.Errorf("chain clock: %w", err)
	}

	// ── Identity ──────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("registry.port")
	issuerURL := viper.GetString("auth.issuer")
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}

	key, err := identity.LoadOrCreateKey(viper.GetString("auth.key_file"))
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	tokenTTL := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
	tokens := identity.NewCallerTokenIssuer(key, issuerURL, tokenTTL)
	keys, err := loadKeyStore(viper.GetViper())
	if err != nil {
		return err
	}
	logger.Info("caller key store loaded", zap.Int("principals", keys.Len()))

	// ── Events ────────────────────────────────────────────────────────────────
	var sinks events.Fanout
	if urls := viper.GetStringSlice("webhooks.urls"); len(urls) > 0 {
		wh := events.NewWebhookDispatcher(events.WebhookConfig{
			URLs:   urls,
			Secret: viper.GetString("webhooks.secret"),
		}, logger)
		wh.SetMetricsRecorder(handler.RecordEventDelivery)
		wh.SetLifetime(ctx)
		sinks = append(sinks, wh)
		logger.Info("webhook dispatcher configured", zap.Int("urls", len(urls)))
	}
	if addr := viper.GetString("redis.addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close() //nolint:errcheck

		pub := events.NewRedisPublisher(rdb, viper.GetString("redis.channel"), logger)
		pub.SetMetricsRecorder(handler.RecordEventDelivery)
		sinks = append(sinks, pub)
		checker.Add("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info("redis publisher configured",
			zap.String("addr", addr),
			zap.String("channel", pub.Channel()),
		)
	}

	if recipients := viper.GetStringSlice("email.recipients"); len(recipients) > 0 {
		var sender email.Sender
		if host := viper.GetString("email.smtp_host"); host != "" {
			sender = email.NewSMTPSender(email.SMTPConfig{
				Host:     host,
				Port:     viper.GetInt("email.smtp_port"),
				Username: viper.GetString("email.smtp_username"),
				Password: viper.GetString("email.smtp_password"),
				From:     viper.GetString("email.from_address"),
			})
			logger.Info("SMTP compliance notices configured", zap.String("host", host))
		} else {
			sender = email.NewLogSender(logger)
			logger.Info("compliance notices: log only (set email.smtp_host to enable SMTP)")
		}
		notifier := email.NewNotifier(sender, recipients, viper.GetStringSlice("email.notice_types"), logger)
		notifier.SetMetricsRecorder(handler.RecordEventDelivery)
		sinks = append(sinks, notifier)
	}

	// ── Wire up layers ────────────────────────────────────────────────────────
	admins := compliance.NewAdminStore(adminRepo, logger)
	facilities := service.NewFacilityRegistry(facilityRepo, logger)
	technicians := service.NewTechnicianRegistry(technicianRepo, admins, logger)

	admins.SetLedger(ledger)
	admins.SetClock(clock)
	facilities.SetLedger(ledger)
	facilities.SetClock(clock)
	technicians.SetLedger(ledger)
	technicians.SetClock(clock)
	if len(sinks) > 0 {
		admins.SetDispatcher(sinks)
		facilities.SetDispatcher(sinks)
		technicians.SetDispatcher(sinks)
	}

	if adminPrincipal == "" {
		logger.Warn("admin.principal not set; technician status and renewal are disabled until an admin is seeded")
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("registry.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	// Per-IP rate limiting
	if rps := viper.GetFloat64("registry.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, int(rps*2)))
	}

	router.Use(requestID())
	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", checker.Handler())
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	handler.NewAuthHandler(keys, tokens, logger).Register(v1)
	handler.NewChainHandler(clock, logger).Register(v1)
	handler.NewFacilityHandler(facilities, clock, tokens, logger).Register(v1)
	handler.NewTechnicianHandler(technicians, clock, tokens, logger).Register(v1)
	handler.NewAdminHandler(admins, tokens, logger).Register(v1)
	handler.NewLedgerHandler(ledger, logger).Register(v1)

	go checker.Start(ctx)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("registry HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutting down registry...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("registry stopped")
	return nil
}

// facilityStore, technicianStore and adminRepository are the store surfaces
// shared by the Postgres and in-memory implementations.
type facilityStore interface {
	Create(ctx context.Context, f *model.Facility) error
	Get(ctx context.Context, id uint64) (*model.Facility, error)
	Owner(ctx context.Context, id uint64) (model.Principal, error)
	Update(ctx context.Context, id uint64, d model.FacilityDetails) error
	LastID(ctx context.Context) (uint64, error)
}

type technicianStore interface {
	Create(ctx context.Context, t *model.Technician) error
	Get(ctx context.Context, id uint64) (*model.Technician, error)
	GetByAccount(ctx context.Context, account model.Principal) (*model.Technician, error)
	Account(ctx context.Context, id uint64) (model.Principal, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	SetExpiry(ctx context.Context, id uint64, expiry uint64) error
	LastID(ctx context.Context) (uint64, error)
}

type adminRepository interface {
	Get(ctx context.Context) (model.Principal, error)
	Swap(ctx context.Context, prev, next model.Principal) (bool, error)
}

// loadKeyStore reads auth.principals as a list of {principal, hash} entries.
// A list keeps principals case-sensitive; viper lowercases map keys.
func loadKeyStore(v *viper.Viper) (*identity.KeyStore, error) {
	var creds []identity.Credential
	if err := v.UnmarshalKey("auth.principals", &creds); err != nil {
		return nil, fmt.Errorf("read auth.principals: %w", err)
	}
	keys, err := identity.NewKeyStore(creds)
	if err != nil {
		return nil, fmt.Errorf("auth.principals: %w", err)
	}
	return keys, nil
}

// newClock builds the BlockClock from chain.* settings. An empty genesis
// starts the chain at process start.
func newClock() (*chain.BlockClock, error) {
	genesis := time.Now()
	if s := viper.GetString("chain.genesis_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse chain.genesis_time: %w", err)
		}
		genesis = t
	}
	interval, err := time.ParseDuration(viper.GetString("chain.block_interval"))
	if err != nil {
		return nil, fmt.Errorf("parse chain.block_interval: %w", err)
	}
	return chain.NewBlockClock(genesis, interval, viper.GetUint64("chain.start_height"))
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestID tags each request with an X-Request-ID, reusing the caller's if set.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
