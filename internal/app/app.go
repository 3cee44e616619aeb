package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/employee"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/http/api/admin"
	"github.com/tablehouse/eventdesk/internal/http/api/front"
	"github.com/tablehouse/eventdesk/internal/http/api/staff"
	"github.com/tablehouse/eventdesk/internal/logging"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/notify"
	"github.com/tablehouse/eventdesk/internal/payment"
	"github.com/tablehouse/eventdesk/internal/ratelimit"
	"github.com/tablehouse/eventdesk/internal/reservation"
	"github.com/tablehouse/eventdesk/internal/security"
	"github.com/tablehouse/eventdesk/internal/settings"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// CreateAdminParams holds inputs for admin creation from the command line.
type CreateAdminParams struct {
	Username     string
	Password     string
	IsSuperAdmin bool
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	dsn, err := config.LoadDatabaseDSN(cfg)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migrated")
	return nil
}

// CreateAdmin inserts an admin account, generating a password when none is given.
// It returns the password that was set.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) (*models.Admin, string, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, "", errors.New("admin username is required")
	}
	password := strings.TrimSpace(params.Password)
	if password == "" {
		generated, errGenerate := security.GenerateRandomString(16)
		if errGenerate != nil {
			return nil, "", errGenerate
		}
		password = generated
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, "", errHash
	}

	dsn, err := config.LoadDatabaseDSN(cfg)
	if err != nil {
		return nil, "", err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, "", err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, "", errMigrate
	}

	now := time.Now().UTC()
	row := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: params.IsSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := conn.WithContext(ctx).Create(&row).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			return nil, "", fmt.Errorf("admin %q already exists", username)
		}
		return nil, "", fmt.Errorf("create admin: %w", errCreate)
	}
	return &row, password, nil
}

// RunServer boots the HTTP API and background workers, and blocks until ctx is done.
func RunServer(ctx context.Context, appCfg config.AppConfig) error {
	cfg, err := config.Load(appCfg)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		secret, errSecret := security.GenerateRandomString(64)
		if errSecret != nil {
			return errSecret
		}
		cfg.JWT.Secret = secret
		log.Warn("jwt secret not set, using a random one; sessions end on restart")
	}

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}

	sender, err := newSender(ctx, cfg.Mail)
	if err != nil {
		return err
	}
	redisClient, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	svc := buildServices(cfg, conn, notify.NewNotifier(sender, cfg.Server.SiteURL), redisClient)
	checkout.NewIntentSweeper(svc.Checkout).Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("eventdesk listening on %s", cfg.Server.Addr)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case errServe := <-serveErr:
		return errServe
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// buildServices wires the domain services over conn.
func buildServices(cfg *config.Config, conn *gorm.DB, notifier *notify.Notifier, redisClient redis.UniversalClient) api.Services {
	if strings.TrimSpace(cfg.Stripe.SecretKey) == "" {
		log.Warn("stripe secret key not set, checkouts will fail")
	}
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency)
	engine := giftcard.NewEngine(conn)
	orders := giftcard.NewOrderService(engine, notifier)
	bookings := reservation.NewService(conn, notifier)
	siteURL := strings.TrimRight(cfg.Server.SiteURL, "/")
	checkoutService := checkout.NewService(conn, gateway, orders, bookings, checkout.URLs{
		Success: siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		Cancel:  siteURL + "/checkout/cancel",
	})
	return api.Services{
		DB:             conn,
		GiftCards:      engine,
		Orders:         orders,
		Bookings:       bookings,
		Checkout:       checkoutService,
		Employees:      employee.NewService(conn),
		Gateway:        gateway,
		JWT:            cfg.JWT,
		CORSOrigins:    cfg.Server.CORSOrigins,
		BalanceLimiter: ratelimit.New(redisClient, "balance", cfg.RateLimit.BalancePerMinute),
		LoginLimiter:   ratelimit.New(redisClient, "login", cfg.RateLimit.LoginPerMinute),
		TOTPIssuer:     settings.String(settings.SiteNameKey, settings.DefaultSiteName),
	}
}

// NewRouter builds the gin engine with every route group.
func NewRouter(svc api.Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), apphttp.RequestLogger())
	front.RegisterFrontRoutes(engine, svc)
	staff.RegisterStaffRoutes(engine, svc)
	admin.RegisterAdminRoutes(engine, svc)
	engine.NoRoute(func(c *gin.Context) {
		if isAPIRoute(c.Request.URL.Path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": "not_found"})
			return
		}
		c.Status(http.StatusNotFound)
	})
	return engine
}

// newSender picks the mail transport named by the config.
func newSender(ctx context.Context, cfg config.MailConfig) (notify.Sender, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		return notify.NewSMTPSender(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port), cfg.SMTP.Username, cfg.SMTP.Password, cfg.From)
	case config.MailDriverSNS:
		return notify.NewSNSSender(ctx, cfg.SNS.TopicARN, cfg.SNS.Region)
	default:
		return notify.LogSender{}, nil
	}
}

// newRedisClient connects to Redis when configured. Limits stay in process otherwise.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, nil
	}
	client, err := ratelimit.NewRedisClient(url)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warn("redis unreachable at startup, rate limits fall back to process memory when it stays down")
	}
	return client, nil
}

// isAPIRoute reports whether a path targets API endpoints.
func isAPIRoute(requestPath string) bool {
	if requestPath == "/healthz" || strings.HasPrefix(requestPath, "/healthz/") {
		return true
	}
	return requestPath == "/v0" || strings.HasPrefix(requestPath, "/v0/")
}
