package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/notification"
	"github.com/jhoicas/kardex-api/internal/application/ports"
	"github.com/jhoicas/kardex-api/internal/application/scheduler"
	domaininv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/infrastructure/messaging"
	"github.com/jhoicas/kardex-api/internal/infrastructure/postgres"
	"github.com/jhoicas/kardex-api/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/kardex-api/internal/interfaces/http"
	"github.com/jhoicas/kardex-api/pkg/config"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("timezone", cfg.App.Timezone).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownMetrics, err := telemetry.InitMetrics(ctx, cfg.Telemetry, cfg.App.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar métricas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		log.Info().Msg("esquema aplicado")
	}

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}
	calendar := domaininv.NewCalendar(loc, time.Now)

	// Despachador: RabbitMQ si está configurado; si no, solo log.
	var dispatcher ports.Dispatcher = messaging.NewLogDispatcher(log.Named("dispatcher"))
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := messaging.NewRabbitDispatcher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log.Named("dispatcher"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer func() { _ = rabbit.Close() }()
		dispatcher = rabbit
	}

	txRunner := postgres.NewTxRunner(pool)
	lotRepo := postgres.NewLotRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	subscriberRepo := postgres.NewSubscriberRepository(pool)
	siteRepo := postgres.NewSiteRepository(pool)

	lotUC := inventory.NewLotUseCase(txRunner, lotRepo, stockRepo, calendar, log.Named("lots"))
	sweepUC := inventory.NewExpirySweepUseCase(txRunner, lotRepo, calendar, log.Named("sweep"))
	dispatchUC := notification.NewDispatchUseCase(notificationRepo, subscriberRepo, dispatcher, log.Named("dispatch"))
	generatorUC := notification.NewGeneratorUseCase(lotRepo, notificationRepo, dispatchUC, calendar, log.Named("notifications"))
	inboxUC := notification.NewInboxUseCase(notificationRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Kardex API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		LotUC:       lotUC,
		SweepUC:     sweepUC,
		GeneratorUC: generatorUC,
		InboxUC:     inboxUC,
	})

	// Procesos periódicos: barrido de terminados y notificaciones, sede por sede.
	var schedulers []*scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		schedulers = append(schedulers,
			scheduler.New("expiry-sweep", sweepUC, siteRepo, cfg.Scheduler.SweepInterval, log),
			scheduler.New("notifications", generatorUC, siteRepo, cfg.Scheduler.NotifyInterval, log),
		)
		for _, s := range schedulers {
			s.Start(ctx)
		}
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	for _, s := range schedulers {
		s.Stop()
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de métricas")
	}

	log.Info().Msg("aplicación detenida")
}
