package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resto-order/api/internal/auth"
	"github.com/resto-order/api/internal/chatbot"
	"github.com/resto-order/api/internal/config"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/handler"
	mw "github.com/resto-order/api/internal/middleware"
	"github.com/resto-order/api/internal/service"
	"github.com/resto-order/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role/permission middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.WebhookSecretHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Services
	notifier := ws.NewNotifier(hub)
	directory := service.NewDirectoryService(queries, cfg.BranchTimezone)
	pause := service.NewPauseService(queries, directory)
	catalog := service.NewCatalogService(queries)
	cart := service.NewCartService(queries)
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orders := service.NewOrderService(pool, newOrderStore, pause, notifier)
	orderState := service.NewOrderStateService(queries, notifier)
	bot := chatbot.NewBot(chatbot.NewSessions(queries, cfg.ChatbotSessionTTL), catalog, pause, orders)

	sessionStore := auth.NewSessionStore(cfg.SessionKey, cfg.CookieSecure)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, queries, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, sessionStore)
		authHandler.RegisterRoutes(r)

		// Directory and catalog (public)
		handler.NewDirectoryHandler(directory).RegisterRoutes(r)
		handler.NewCatalogHandler(catalog).RegisterRoutes(r)

		pauseHandler := handler.NewPauseHandler(pause)
		r.Route("/pause", func(r chi.Router) {
			pauseHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret, sessionStore))
				pauseHandler.RegisterRoutes(r)
			})
		})

		// Chat gateway webhook (shared secret, no user identity)
		chatbotHandler := handler.NewChatbotHandler(bot, cfg.ChatbotWebhookSecret)
		r.Post("/chatbot/webhook", chatbotHandler.Webhook)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret, sessionStore))

			r.Route("/cart", handler.NewCartHandler(cart).RegisterRoutes)
			r.Route("/order", handler.NewOrderHandler(orders, orderState).RegisterRoutes)
			r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
