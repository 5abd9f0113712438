package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/channel"
	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/gembag"
	"github.com/gm-shop/gm_shop/internal/identity"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/kvstore"
	"github.com/gm-shop/gm_shop/internal/ledger"
	"github.com/gm-shop/gm_shop/internal/logging"
	"github.com/gm-shop/gm_shop/internal/notification"
	"github.com/gm-shop/gm_shop/internal/routes"
	"github.com/gm-shop/gm_shop/internal/transaction"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

// components are the long-lived pieces the server owns besides the HTTP app.
type components struct {
	deps       routes.Deps
	bus        channel.Bus
	requester  *channel.Requester
	dispatcher *transaction.Dispatcher
	registry   *approval.Registry
}

// loadSettings prefers settings saved by a previous GM update over the
// YAML file, and seeds the store from the file on first start.
func loadSettings(ctx context.Context, cfg config.Config, store kvstore.Store, logger *slog.Logger) (*config.Settings, error) {
	shop, ok, err := config.LoadStoredShop(ctx, store)
	if err != nil {
		logger.Warn("stored shop settings unreadable, falling back to file", slog.Any("error", err))
	}
	if !ok {
		shop, err = config.LoadShop(cfg.ShopSettingsPath)
		if err != nil {
			return nil, err
		}
		if err := config.SaveShop(ctx, store, shop); err != nil {
			return nil, fmt.Errorf("seed shop settings: %w", err)
		}
	}
	return config.NewSettings(shop), nil
}

func build(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, level *slog.LevelVar) (*components, error) {
	if !cfg.Authority && cache == nil {
		return nil, fmt.Errorf("a non-authority process needs REDIS_URL to reach the authority")
	}

	var (
		kv        kvstore.Store
		bus       channel.Bus
		inv       inventory.Store
		vendors   vendor.Repository
		usersRepo identity.Repository
	)
	if cache != nil {
		kv = kvstore.NewRedis(cache)
		bus = channel.NewRedisBus(cache, channel.DefaultTopic, logger)
	} else {
		kv = kvstore.NewMemory()
		bus = channel.NewMemoryBus()
	}
	if db != nil {
		inv = inventory.NewPostgresStore(db)
		vendors = vendor.NewPostgresRepository(db)
		usersRepo = identity.NewPostgresRepository(db)
	} else {
		inv = inventory.NewMemoryStore()
		vendors = vendor.NewMemoryRepository()
		usersRepo = identity.NewMemoryRepository()
	}

	settings, err := loadSettings(ctx, cfg, kv, logger)
	if err != nil {
		return nil, err
	}
	if level != nil {
		toggle := logging.Toggle(level, level.Level())
		toggle(settings.Get().DebugLogging)
		settings.Subscribe(func(s config.Shop) { toggle(s.DebugLogging) })
	}

	wallets, err := ledger.New(kv, inv, settings, logger)
	if err != nil {
		return nil, err
	}
	notifier := notification.NewBusNotifier(bus, logger)
	vendorSvc := vendor.NewService(vendors, notifier, logger)
	gems := gembag.NewService(settings, inv, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	c := &components{bus: bus}
	var client *transaction.Client
	if cfg.Authority {
		c.registry = approval.NewRegistry(logger)
		manager := transaction.NewManager(transaction.Deps{
			Wallet:    wallets,
			Catalog:   vendorSvc,
			Inventory: inv,
			Approver:  c.registry,
			Notifier:  notifier,
			Settings:  settings,
			Logger:    logger,
		})
		c.dispatcher = transaction.NewDispatcher(bus, manager, logger)
		client = transaction.NewLocalClient(manager)
	} else {
		requester, err := channel.NewRequester(bus)
		if err != nil {
			return nil, fmt.Errorf("subscribe for results: %w", err)
		}
		c.requester = requester
		client = transaction.NewRemoteClient(requester, cfg.RequestTimeout)
	}

	c.deps = routes.Deps{
		Cfg:          cfg,
		DB:           db,
		Cache:        cache,
		Logger:       logger,
		KV:           kv,
		Settings:     settings,
		Identity:     identity.NewService(usersRepo),
		Vendors:      vendorSvc,
		Ledger:       wallets,
		Inventory:    inv,
		Gems:         gems,
		Transactions: client,
		Approvals:    c.registry,
	}
	return c, nil
}
