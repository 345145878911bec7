// Package app assembles the application.
// app.go is the composition root: pool, migrations, blob store, cache,
// publishers, repositories, services, handlers, router and scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"serotonyl.ru/printvend/internal/blob"
	"serotonyl.ru/printvend/internal/cache"
	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/config"
	"serotonyl.ru/printvend/internal/db/postgres"
	"serotonyl.ru/printvend/internal/events"
	"serotonyl.ru/printvend/internal/features/admin"
	"serotonyl.ru/printvend/internal/features/checkout"
	"serotonyl.ru/printvend/internal/features/coupons"
	"serotonyl.ru/printvend/internal/features/orders"
	"serotonyl.ru/printvend/internal/features/pricing"
	"serotonyl.ru/printvend/internal/features/profiles"
	"serotonyl.ru/printvend/internal/features/support"
	"serotonyl.ru/printvend/internal/features/wallet"
	"serotonyl.ru/printvend/internal/jobs"
	"serotonyl.ru/printvend/internal/notify"
	"serotonyl.ru/printvend/internal/server"
	"serotonyl.ru/printvend/internal/server/middleware"
)

// App holds the running components.
type App struct {
	Router    http.Handler
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool

	closers []io.Closer
	mongo   *mongo.Client
	limiter *middleware.RateLimiter
}

// New builds the application. Order matters: components depend on each other.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	loc := common.LoadLocation(cfg.AppTimezone)

	// === 1. Database ===
	if err = postgres.RunMigrations(cfg.DatabaseDSN()); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a.DB, err = postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// === 2. Blob storage ===
	blobs, err := a.openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	blobs = blob.NewBreaker(blobs, cfg.BlobBreakerFailures, cfg.BlobBreakerTimeout)

	// === 3. Cache, events, notifications ===
	var couponCache coupons.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client)
		couponCache = cache.NewRedis(client, "coupon", cfg.CouponCacheTTL)
	} else {
		log.Info("REDIS_ADDR is empty, coupon cache disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, k)
		publisher = k
	} else {
		log.Info("KAFKA_BROKERS is empty, order events disabled")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotificationsEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.SupportChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		notifier = tg
	}

	// === 4. Repositories ===
	walletRepo := wallet.NewRepository(a.DB)
	couponRepo := coupons.NewRepository(a.DB)
	orderRepo := orders.NewRepository(a.DB, couponRepo, walletRepo)
	profileRepo := profiles.NewRepository(a.DB)
	supportRepo := support.NewRepository(a.DB)
	adminRepo := admin.NewRepository(a.DB)

	// === 5. Services ===
	engine := pricing.NewEngine(pricing.Settings{
		Rates: pricing.RateTable{
			BWSingle:    cfg.RateBWSingle,
			BWDouble:    cfg.RateBWDouble,
			ColorSingle: cfg.RateColorSingle,
			ColorDouble: cfg.RateColorDouble,
		},
		TaxRate:         cfg.TaxRate,
		CoinValue:       cfg.CoinValue,
		CashbackDivisor: cfg.CashbackDivisor,
	})
	walletService := wallet.NewService(walletRepo, cfg.WalletHistoryLimit)
	couponService := coupons.NewService(couponRepo, couponCache)
	profileService := profiles.NewService(profileRepo, walletRepo)
	orderManager := orders.NewManager(orderRepo, blobs, publisher, cfg.OrderTTL)
	checkoutService := checkout.NewService(profileService, couponService, walletService, orderManager, engine)
	supportService := support.NewService(supportRepo, notifier)
	adminService := admin.NewService(adminRepo, orderManager, loc)

	// === 6. HTTP ===
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	a.Router = server.NewRouter(server.Handlers{
		Checkout: checkout.NewHandler(checkoutService, cfg.MaxUploadBytes(), checkout.Limits{
			MaxPages:  cfg.MaxPages,
			MaxCopies: cfg.MaxCopies,
			MaxSheets: cfg.MaxSheets,
		}),
		Orders:   orders.NewHandler(orderManager, walletService, cfg.UserOrdersLimit, cfg.OrphanGrace),
		Coupons:  coupons.NewHandler(couponService),
		Wallet:   wallet.NewHandler(walletService),
		Profiles: profiles.NewHandler(profileService),
		Support:  support.NewHandler(supportService),
		Admin:    admin.NewHandler(adminService),
	}, server.Options{
		CORSOrigin:     cfg.CORSOrigin,
		KioskTokenHash: cfg.KioskTokenHash,
		AdminTokenHash: cfg.AdminTokenHash,
		Limiter:        a.limiter,
	})

	// === 7. Scheduler ===
	a.Scheduler = jobs.NewScheduler(orderManager, cfg.SweepSchedule, cfg.OrphanGrace, loc)

	return a, nil
}

func (a *App) openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobDriver {
	case "gridfs":
		db, err := blob.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.mongo = db.Client()
		log.WithField("bucket", cfg.BlobBucket).Info("blob store: gridfs")
		return blob.NewGridFS(db, cfg.BlobBucket), nil
	case "fs":
		d, err := blob.NewDir(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("open blob dir: %w", err)
		}
		log.WithField("dir", cfg.BlobDir).Info("blob store: filesystem")
		return d, nil
	case "memory":
		log.Warn("blob store: memory, uploads are lost on restart")
		return blob.NewMemory(), nil
	default:
		return nil, errors.New("unknown blob driver " + cfg.BlobDriver)
	}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.WithError(err).Warn("failed to close component")
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("failed to disconnect mongo")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
