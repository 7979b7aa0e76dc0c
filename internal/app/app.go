package app

import (
	"context"
	"fmt"

	"storefront/config"
	"storefront/internal/broker"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"go.uber.org/zap"
)

// App holds the storefront services wired to the configured backends.
// Both the HTTP server and the terminal build one.
type App struct {
	Repo     store.Repository
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService

	// Stock and Worker are nil when Redis is not configured;
	// Worker is also nil without a broker or when not requested.
	Stock  *service.StockCache
	Worker *worker.StockWorker

	checks  map[string]func(context.Context) error
	closers []func() error
	logger  *zap.Logger
}

// New connects the store, lock, mirror and broker named by cfg. withWorker
// also builds the stock worker's consumer.
func New(ctx context.Context, cfg *config.Config, withWorker bool) (_ *App, err error) {
	a := &App{
		checks: make(map[string]func(context.Context) error),
		logger: util.GetLogger(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStore(ctx, cfg.Database); err != nil {
		return nil, err
	}

	var locker service.Locker = service.NewLocalLocker(cfg.Business.LockWait)
	if cfg.Redis.Addr != "" {
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		a.checks["redis"] = rc.Ping
		locker = redisclient.NewLocker(rc, cfg.Business.LockTTL, cfg.Business.LockWait)
		a.Stock = service.NewStockCache(a.Repo, rc)
		a.logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	publisher, consumer, err := a.openBroker(cfg.Broker, withWorker && a.Stock != nil)
	if err != nil {
		return nil, err
	}
	if a.Stock != nil && !brokerConfigured(cfg.Broker) {
		// no stock worker will ever see these events
		publisher = service.NewSyncingPublisher(publisher, a.Stock)
	}

	a.Catalog = service.NewCatalogService(a.Repo, publisher)
	a.Carts = service.NewCartService(a.Repo, locker, cfg.Business.StrictMerge)
	a.Checkout = service.NewCheckoutService(a.Repo, locker, publisher)
	a.Orders = service.NewOrderService(a.Repo)

	if consumer != nil {
		a.Worker = worker.NewStockWorker(consumer, a.Stock)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig) error {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return err
		}
		a.Repo = db
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = db.Ping
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		a.logger.Info("Database connected")
	case config.StoreDriverMemory:
		a.Repo = store.NewMemoryStore()
		a.logger.Info("Using in-memory store")
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if cfg.Seed {
		n, err := store.SeedSampleData(ctx, a.Repo)
		if err != nil {
			return err
		}
		if n > 0 {
			a.logger.Info("Sample data seeded", zap.Int("products", n))
		}
	}
	return nil
}

func (a *App) openBroker(cfg config.BrokerConfig, withConsumer bool) (service.EventPublisher, broker.Consumer, error) {
	var (
		producer broker.Producer
		consumer broker.Consumer
	)

	switch cfg.Kind {
	case config.BrokerKafka:
		producer = broker.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if withConsumer {
			consumer = broker.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ConsumerGroup)
		}
	case config.BrokerRabbitMQ:
		p, err := broker.NewAMQPProducer(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		producer = p
		if withConsumer {
			c, err := broker.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPQueue)
			if err != nil {
				_ = p.Close()
				return nil, nil, err
			}
			consumer = c
		}
	case config.BrokerNone, "":
		return service.NopPublisher{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown broker %q", cfg.Kind)
	}

	a.closers = append(a.closers, producer.Close)
	a.logger.Info("Event producer initialized", zap.String("broker", cfg.Kind))
	return broker.NewEventPublisher(producer), consumer, nil
}

func brokerConfigured(cfg config.BrokerConfig) bool {
	return cfg.Kind != config.BrokerNone && cfg.Kind != ""
}

// ReadinessChecks returns a probe per connected backend
func (a *App) ReadinessChecks() map[string]func(context.Context) error {
	return a.checks
}

// Close releases backends in reverse order of opening. The worker's
// consumer is closed by Worker.Stop.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Error closing backend", zap.Error(err))
		}
	}
	a.closers = nil
}
