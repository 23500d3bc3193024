// Package app wires the fulfillment components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/adapter/messaging"
	"github.com/rl1809/fulfillment/internal/adapter/storage"
	"github.com/rl1809/fulfillment/internal/config"
	"github.com/rl1809/fulfillment/internal/core/service"
	"github.com/rl1809/fulfillment/internal/eventbus"
	"github.com/rl1809/fulfillment/internal/gateway"
	"github.com/rl1809/fulfillment/internal/port"
)

// Store is what a storage backend must provide.
type Store interface {
	port.UnitOfWork
	port.ProductRepository
	port.DirectoryRepository
}

// Container holds the long-lived components of one process.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     Store
	Bus       *eventbus.Bus
	Gateway   *gateway.Gateway
	Orders    *service.OrderService
	Inventory *service.InventoryService

	memory  *storage.MemoryStore
	closers []func() error
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if err := c.setupStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	var cache *storage.RedisAdapter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.closers = append(c.closers, rdb.Close)
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	notifier, err := c.setupNotifier()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Bus = eventbus.New(logger)
	c.Inventory = service.NewInventoryService(c.Store, c.Store, logger)
	c.setupGateway()

	inventoryClient := gateway.NewInventoryClient(c.Gateway)
	directoryClient := gateway.NewDirectoryClient(c.Gateway)

	c.Orders = service.NewOrderService(c.Store, inventoryClient, directoryClient, directoryClient, c.Bus, logger)
	release := service.NewStockReleaseHandler(c.Store, c.Bus, logger)
	if cache != nil {
		c.Orders.WithIdempotency(cache)
		release.WithLocks(cache)
	}

	service.Subscribe(c.Bus,
		release,
		service.NewReconciliationHandler(c.Store, c.Bus, logger),
		service.NewSideEffectHandler(notifier, logger),
	)
	return c, nil
}

// Memory returns the in-process store when the memory backend is selected.
func (c *Container) Memory() (*storage.MemoryStore, bool) {
	return c.memory, c.memory != nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

func (c *Container) setupStore(ctx context.Context) error {
	if c.Config.Storage == config.StorageMemory {
		c.memory = storage.NewMemoryStore()
		c.Store = c.memory
		if path := c.Config.MemorySeed; path != "" {
			seed, err := storage.LoadSeed(path)
			if err != nil {
				return err
			}
			if err := c.memory.Apply(seed); err != nil {
				return fmt.Errorf("apply seed %s: %w", path, err)
			}
			c.Logger.Info("seeded in-memory storage",
				zap.String("path", path),
				zap.Int("products", len(seed.Products)),
				zap.Int("users", len(seed.Users)),
			)
		}
		c.Logger.Info("using in-memory storage")
		return nil
	}

	db, err := sqlx.Open("mysql", c.Config.MySQLDSN)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	c.closers = append(c.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	c.Store = storage.NewMySQLAdapter(db)
	c.Logger.Info("connected to mysql")
	return nil
}

func (c *Container) setupNotifier() (port.WorkflowNotifier, error) {
	if len(c.Config.KafkaBrokers) == 0 {
		return messaging.NewLogNotifier(c.Logger), nil
	}

	producer, err := messaging.NewSyncProducer(c.Config.KafkaBrokers, c.Config.KafkaClientID)
	if err != nil {
		return nil, err
	}
	notifier := messaging.NewKafkaNotifier(producer, messaging.DefaultTopics(c.Config.KafkaTopicPrefix), c.Logger)
	c.closers = append(c.closers, notifier.Close)
	return notifier, nil
}

func (c *Container) setupGateway() {
	c.Gateway = gateway.New(c.Logger)
	c.closers = append(c.closers, c.Gateway.Close)

	if addr := c.Config.InventoryAddr; addr != "" {
		c.Gateway.Register(gateway.ServiceInventory, gateway.RemoteFactory(addr, gateway.ServiceInventory))
	} else {
		c.Gateway.Register(gateway.ServiceInventory, func() (gateway.Service, error) {
			return gateway.NewLocalInventory(c.Inventory, c.Store), nil
		})
	}

	if addr := c.Config.DirectoryAddr; addr != "" {
		c.Gateway.Register(gateway.ServiceDirectory, gateway.RemoteFactory(addr, gateway.ServiceDirectory))
	} else {
		c.Gateway.Register(gateway.ServiceDirectory, func() (gateway.Service, error) {
			return gateway.NewLocalDirectory(c.Store), nil
		})
	}
}

// LocalServices returns the in-process gateway backends, for serving them to peers over gRPC.
func (c *Container) LocalServices() map[gateway.ServiceType]gateway.Service {
	return map[gateway.ServiceType]gateway.Service{
		gateway.ServiceInventory: gateway.NewLocalInventory(c.Inventory, c.Store),
		gateway.ServiceDirectory: gateway.NewLocalDirectory(c.Store),
	}
}
