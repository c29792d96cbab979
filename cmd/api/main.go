package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guestlist-service/internal/api/http"
	"github.com/spec-kit/guestlist-service/internal/api/http/handlers"
	"github.com/spec-kit/guestlist-service/internal/checkin"
	"github.com/spec-kit/guestlist-service/internal/config"
	"github.com/spec-kit/guestlist-service/internal/events"
	"github.com/spec-kit/guestlist-service/internal/notify"
	"github.com/spec-kit/guestlist-service/internal/observability"
	"github.com/spec-kit/guestlist-service/internal/persistence"
	"github.com/spec-kit/guestlist-service/internal/repository"
	"github.com/spec-kit/guestlist-service/internal/service"
	"github.com/spec-kit/guestlist-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Checkin.Secret == config.DefaultCheckinSecret && cfg.App.Env != "development" {
		logger.Warn("CHECKIN_SECRET not set; tokens are signed with the development default")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	codec := checkin.NewTokenCodec(cfg.Checkin.Secret)
	dispatcher := events.NewInMemoryDispatcher()
	guestRepo := repository.NewGuestRepository(pg.PoolHandle())

	emailSender := notify.NewMailerSendSender(cfg.Email, cfg.Event)
	if !emailSender.Enabled() {
		logger.Warn("email provider not configured; invite emails will fail")
	}
	whatsappClient := notify.NewWaSenderClient(cfg.WhatsApp)
	uploaderClient := notify.NewUploadThingClient(cfg.Upload)
	qrCache := notify.NewQRURLCache(redis, cfg.Upload.CacheTTL(), logger)

	inviteService := service.NewInviteService(service.InviteDependencies{
		GuestRepo:  guestRepo,
		Email:      emailSender,
		WhatsApp:   whatsappClient,
		Uploader:   uploaderClient,
		QRCache:    qrCache,
		Dispatcher: dispatcher,
		Event:      cfg.Event,
		WhatsAppCC: cfg.WhatsApp.DefaultCountryCode,
		Logger:     logger,
	})
	guestService := service.NewGuestService(service.GuestDependencies{
		GuestRepo:  guestRepo,
		Codec:      codec,
		Inviter:    inviteService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	checkinService := service.NewCheckinService(service.CheckinDependencies{
		GuestRepo:  guestRepo,
		Codec:      codec,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Guests:  handlers.NewGuestsHandler(guestService),
		Notify:  handlers.NewNotifyHandler(inviteService),
		Checkin: handlers.NewCheckinHandler(checkinService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
