package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avaldezco/sazonpos-backend/api/controllers"
	"github.com/avaldezco/sazonpos-backend/api/middleware"
	"github.com/avaldezco/sazonpos-backend/internal/auth"
	cartsvc "github.com/avaldezco/sazonpos-backend/internal/cart"
	checkoutsvc "github.com/avaldezco/sazonpos-backend/internal/checkout"
	"github.com/avaldezco/sazonpos-backend/internal/customers"
	"github.com/avaldezco/sazonpos-backend/internal/inventory"
	"github.com/avaldezco/sazonpos-backend/internal/library"
	"github.com/avaldezco/sazonpos-backend/internal/menu"
	"github.com/avaldezco/sazonpos-backend/internal/messages"
	"github.com/avaldezco/sazonpos-backend/internal/orders"
	"github.com/avaldezco/sazonpos-backend/internal/reports"
	"github.com/avaldezco/sazonpos-backend/internal/staff"
	"github.com/avaldezco/sazonpos-backend/pkg/auth/session"
	"github.com/avaldezco/sazonpos-backend/pkg/config"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil when a
// deployment runs without that dependency.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Redis    *redis.Client
	DBPinger controllers.Pinger
	GCS      controllers.Pinger
	BigQuery controllers.Pinger

	Sessions session.AccessSessionChecker

	Auth       auth.Service
	Cart       *cartsvc.Sessions
	Checkout   checkoutsvc.Service
	Menu       menu.Service
	Inventory  inventory.Service
	Staff      staff.Service
	Customers  customers.Service
	Orders     orders.Service
	OrdersRepo orders.Repository
	Library    library.Service
	Messages   messages.Service
	Reports    reports.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	store := idempotencyStore(deps.Redis)
	limiter := limiterStore(deps.Redis)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":       deps.DBPinger,
			"redis":    pinger(deps.Redis),
			"gcs":      deps.GCS,
			"bigquery": deps.BigQuery,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Post("/auth/change-password", controllers.AuthChangePassword(deps.Auth, logg))

		// Register-facing routes need the terminal header so the cart
		// engine knows whose order is being assembled.
		r.Group(func(r chi.Router) {
			r.Use(middleware.TerminalContext(logg))
			r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager, enums.MemberRoleCashier))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Put("/items/{cartItemId}", controllers.CartReplaceItem(deps.Cart, logg))
				r.Patch("/items/{cartItemId}", controllers.CartUpdateQuantity(deps.Cart, logg))
				r.Delete("/items/{cartItemId}", controllers.CartRemoveItem(deps.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/items", controllers.MenuList(deps.Menu, logg))
			r.Get("/items/{itemId}", controllers.MenuGet(deps.Menu, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager))
				r.Post("/items", controllers.MenuCreate(deps.Menu, logg))
				r.Patch("/items/{itemId}", controllers.MenuUpdate(deps.Menu, logg))
				r.Delete("/items/{itemId}", controllers.MenuDelete(deps.Menu, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager, enums.MemberRoleKitchen))
			r.Get("/", controllers.InventoryList(deps.Inventory, logg))
			r.Get("/{itemId}", controllers.InventoryGet(deps.Inventory, logg))
			r.Get("/{itemId}/adjustments", controllers.InventoryAdjustments(deps.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager))
				r.Post("/", controllers.InventoryCreate(deps.Inventory, logg))
				r.Patch("/{itemId}", controllers.InventoryUpdate(deps.Inventory, logg))
				r.Post("/{itemId}/adjust", controllers.InventoryAdjust(deps.Inventory, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, deps.OrdersRepo, logg))
			r.Post("/{orderId}/status", controllers.OrderUpdateStatus(deps.Orders, logg))
			r.With(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager)).
				Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin))
			r.Post("/", controllers.StaffInvite(deps.Staff, logg))
			r.Get("/", controllers.StaffList(deps.Staff, logg))
			r.Get("/{userId}", controllers.StaffGet(deps.Staff, logg))
			r.Patch("/{userId}", controllers.StaffUpdate(deps.Staff, logg))
			r.Delete("/{userId}", controllers.StaffDeactivate(deps.Staff, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager, enums.MemberRoleCashier))
			r.Post("/", controllers.CustomerCreate(deps.Customers, logg))
			r.Get("/", controllers.CustomerList(deps.Customers, logg))
			r.Get("/{customerId}", controllers.CustomerGet(deps.Customers, logg))
			r.Patch("/{customerId}", controllers.CustomerUpdate(deps.Customers, logg))
		})

		r.Route("/library", func(r chi.Router) {
			r.Get("/", controllers.LibraryList(deps.Library, logg))
			r.Get("/{textbookId}", controllers.LibraryGet(deps.Library, logg))
			r.Get("/{textbookId}/download", controllers.LibraryDownload(deps.Library, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager))
				r.Post("/presign", controllers.LibraryPresign(deps.Library, logg))
				r.Post("/finalize", controllers.LibraryFinalize(deps.Library, logg))
				r.Patch("/{textbookId}", controllers.LibraryUpdate(deps.Library, logg))
				r.Delete("/{textbookId}", controllers.LibraryDelete(deps.Library, logg))
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", controllers.MessagesList(deps.Messages, logg))
			r.Post("/{messageId}/read", controllers.MessageMarkRead(deps.Messages, logg))
			r.Post("/read-all", controllers.MessagesMarkAllRead(deps.Messages, logg))
		})

		r.With(middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager)).
			Get("/reports/daily", controllers.ReportsDaily(deps.Reports, logg))
	})

	return r
}

// The nil guards below keep a typed-nil *redis.Client from masquerading as a
// live dependency behind an interface.

func pinger(c *redis.Client) controllers.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func idempotencyStore(c *redis.Client) redis.IdempotencyStore {
	if c == nil {
		return nil
	}
	return c
}

type rateLimiter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func limiterStore(c *redis.Client) rateLimiter {
	if c == nil {
		return nil
	}
	return c
}
