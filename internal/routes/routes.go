package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/gembag"
	"github.com/gm-shop/gm_shop/internal/identity"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/kvstore"
	"github.com/gm-shop/gm_shop/internal/ledger"
	"github.com/gm-shop/gm_shop/internal/middleware"
	"github.com/gm-shop/gm_shop/internal/transaction"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

// Deps aggregates shared dependencies required to wire routes. Approvals is
// nil on processes that are not the transaction authority.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	KV           kvstore.Store
	Settings     *config.Settings
	Identity     *identity.Service
	Vendors      *vendor.Service
	Ledger       *ledger.Ledger
	Inventory    inventory.Store
	Gems         *gembag.Service
	Transactions *transaction.Client
	Approvals    *approval.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1", middleware.Identity(d.Identity, true))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"authority":  d.Cfg.Authority,
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identity.NewHandler(d.Identity))
	RegisterVendorRoutes(api, vendor.NewHandler(d.Vendors))
	RegisterTransactionRoutes(api, transaction.NewHandler(d.Transactions),
		middleware.TransactionRateLimit(d.Cache, d.Cfg.RequestsPerMin),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)
	RegisterBalanceRoutes(api, ledger.NewHandler(d.Ledger))
	RegisterInventoryRoutes(api, d.Inventory)
	RegisterGemBagRoutes(api, gembag.NewHandler(d.Gems))
	RegisterSettingsRoutes(api, d.Settings, d.KV, d.Logger)
	if d.Approvals != nil {
		RegisterApprovalRoutes(api, approval.NewHandler(d.Approvals))
	}

	return nil
}
