package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"matchday-service/config"
	"matchday-service/database"
	"matchday-service/logger"
	"matchday-service/pkg/business"
	"matchday-service/pkg/common"
	"matchday-service/pkg/processing"
	"matchday-service/services"
	"matchday-service/web"
)

func main() {
	logger.Println("Starting matchday service...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetDebug(common.ParseLevel(cfg.LogLevel) == common.LevelDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, db := openStorage(cfg)
	if db != nil {
		defer db.Close()
	}

	broker := openBroker(cfg)
	defer broker.Close()

	cache := services.NewQueryCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	defer cache.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifier business.Notifier
	var alerter business.TextNotifier
	if cfg.NotifyWebhook != "" {
		lark := services.NewLarkNotifier(cfg.NotifyWebhook)
		notifier, alerter = lark, lark
	} else {
		logger.Println("[Config] NOTIFY_WEBHOOK not set, match notifications disabled")
	}

	validator := processing.NewDataValidator("matchday", common.NewLogger("Validator"))
	notifications := business.NewNotificationService(common.NewLogger("Notifier"), storage, notifier)

	matches := business.NewMatchService(common.NewLogger("MatchService"), storage, validator,
		business.WithBroker(broker),
		business.WithCache(cache),
		business.WithNotifications(notifications),
		business.WithMetrics(business.NewControlMetrics(registry)),
	)
	catalog := business.NewCatalogService(common.NewLogger("CatalogService"), storage, validator, cache)

	if cfg.MonitorIntervalSeconds > 0 {
		monitor := business.NewClockMonitor(common.NewLogger("ClockMonitor"), storage, alerter,
			time.Duration(cfg.MonitorIntervalSeconds)*time.Second, cfg.OverrunMinutes, registry)
		go monitor.Run(ctx)
	}

	hub := web.NewHub(common.NewLogger("Hub"), cfg.CORSOrigins)
	go hub.Run(ctx)
	if err := hub.ForwardClockEvents(ctx, broker); err != nil {
		logger.Fatalf("Failed to subscribe hub to clock events: %v", err)
	}

	if cfg.AdminToken == "" {
		logger.Println("[Config] ADMIN_TOKEN not set, admin endpoints will reject all requests")
	}

	server := web.NewServer(cfg, common.NewLogger("API"), web.Dependencies{
		Matches:  matches,
		Catalog:  catalog,
		Health:   storage,
		Hub:      hub,
		Registry: registry,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Println("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Errorf("Web server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	stop()
	notifications.Wait()

	logger.Println("Service stopped")
}

// openStorage 按配置选择 postgres 或内存存储
func openStorage(cfg *config.Config) (processing.DataStorage, *sql.DB) {
	if cfg.Storage == config.StorageMemory {
		logger.Println("[Storage] Using in-memory storage, data will not survive a restart")
		return processing.NewMemoryStorage(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Println("Database connected and migrated")

	return processing.NewPostgreSQLStorage(db, common.NewLogger("Storage")), db
}

// openBroker 进程内 broker 为主, 配置了 AMQP / MQTT 时镜像发布
func openBroker(cfg *config.Config) services.MessageBroker {
	primary := services.NewInMemoryBroker()
	var mirrors []services.MessageBroker

	if cfg.AMQPURL != "" {
		amqpBroker, err := services.NewAMQPBroker(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Errorf("[AMQPBroker] Disabled: %v", err)
		} else {
			mirrors = append(mirrors, amqpBroker)
			logger.Printf("[AMQPBroker] Publishing clock events to exchange %s", cfg.AMQPExchange)
		}
	}

	if cfg.MQTTBroker != "" {
		mqttBroker, err := services.NewMQTTBroker(cfg.MQTTBroker, cfg.MQTTUsername, cfg.MQTTPassword, cfg.MQTTTopicPrefix)
		if err != nil {
			logger.Errorf("[MQTTBroker] Disabled: %v", err)
		} else {
			mirrors = append(mirrors, mqttBroker)
			logger.Printf("[MQTTBroker] Publishing clock events under %s", cfg.MQTTTopicPrefix)
		}
	}

	if len(mirrors) == 0 {
		return primary
	}
	return services.NewMultiBroker(primary, mirrors...)
}
