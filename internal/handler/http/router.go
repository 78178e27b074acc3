package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/auth"
	"github.com/vasiliy-maslov/petite-maison/internal/cart"
	"github.com/vasiliy-maslov/petite-maison/internal/catalog"
	"github.com/vasiliy-maslov/petite-maison/internal/fanzine"
	"github.com/vasiliy-maslov/petite-maison/internal/metrics"
	"github.com/vasiliy-maslov/petite-maison/internal/order"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

// Pinger is satisfied by *db.Postgres and *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Provider auth.IdentityProvider
	Auth     auth.Service
	Users    user.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Orders   order.Service
	Fanzine  fanzine.Service
	Audit    audit.Recorder
	Metrics  *metrics.Metrics
	DB       Pinger

	RequestTimeout time.Duration
}

// Roles allowed on buyer routes (cart, orders, fanzine reading, subscriptions).
var buyerRoles = []user.Role{user.RoleBuyer, user.RoleAdmin}

func NewRouter(deps Dependencies) *chi.Mux {
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.Nop()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	authHandler := NewAuthHandler(deps.Auth, deps.Users, recorder)
	catalogHandler := NewCatalogHandler(deps.Catalog)
	cartHandler := NewCartHandler(deps.Cart, deps.Orders)
	orderHandler := NewOrderHandler(deps.Orders)
	fanzineHandler := NewFanzineHandler(deps.Fanzine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/health", healthHandler(deps.DB))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/featured", catalogHandler.ListFeatured)
		r.Get("/products/{slug}", catalogHandler.GetProduct)
		r.Get("/categories", catalogHandler.ListCategories)

		r.Get("/fanzine/issues", fanzineHandler.ListIssues)
		r.Get("/fanzine/issues/{id}", fanzineHandler.GetIssue)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Provider))

			r.Get("/me", authHandler.Me)
			r.Get("/me/profile", authHandler.Me)
			r.Patch("/me/profile", authHandler.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(buyerRoles...))

				r.Get("/cart", cartHandler.GetCart)
				r.Post("/cart", cartHandler.AddItem)
				r.Post("/cart/checkout", cartHandler.Checkout)
				r.Patch("/cart/{id}", cartHandler.UpdateItem)
				r.Delete("/cart/{id}", cartHandler.RemoveItem)

				r.Get("/orders", orderHandler.ListOrders)
				r.Get("/orders/{id}", orderHandler.GetOrder)

				r.Get("/fanzine/read/{id}", fanzineHandler.ReadIssue)
				r.Get("/fanzine/library", fanzineHandler.Library)

				r.Get("/subscriptions/me", fanzineHandler.ListSubscriptions)
				r.Post("/subscriptions", fanzineHandler.CreateSubscription)
				r.Delete("/subscriptions/{id}", fanzineHandler.CancelSubscription)
			})
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.Error().Err(err).Msg("Health check failed")
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}
}
