package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth    *services.AuthService
	Users   *services.UserService
	Follows *services.FollowService
	Recipes *services.RecipeService
	Catalog *services.CatalogService
}

func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	follows := services.NewFollowService(db)
	return &Services{
		Auth:    services.NewAuthService(db, cfg),
		Users:   services.NewUserService(db, follows),
		Follows: follows,
		Recipes: services.NewRecipeService(db, follows),
		Catalog: services.NewCatalogService(db),
	}
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	healthHandler := handlers.NewHealthHandler(db)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Follows, cfg.PageSize)
	recipeHandler := handlers.NewRecipeHandler(svc.Recipes, cfg.PageSize)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)

	requireAuth := middleware.RequireAuth(cfg, svc.Auth)
	optionalAuth := middleware.OptionalAuth(cfg, svc.Auth)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	if cfg.RateLimitPerMinute > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:               cfg.RateLimitPerMinute,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}))
	}

	api.Get("/health", healthHandler.Check)

	// Token auth, stricter limit on login attempts
	auth := api.Group("/auth/token")
	auth.Post("/login", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), authHandler.Login)
	auth.Post("/logout", requireAuth, authHandler.Logout)

	// Users. Fixed paths are registered before :id.
	users := api.Group("/users")
	users.Post("/", authHandler.Register)
	users.Get("/", optionalAuth, userHandler.List)
	users.Get("/me", requireAuth, userHandler.Me)
	users.Post("/set_password", requireAuth, authHandler.SetPassword)
	users.Get("/subscriptions", requireAuth, userHandler.Subscriptions)
	users.Get("/:id<int>", optionalAuth, userHandler.Get)
	users.Post("/:id<int>/subscribe", requireAuth, userHandler.Subscribe)
	users.Delete("/:id<int>/subscribe", requireAuth, userHandler.Unsubscribe)

	// Catalogs
	api.Get("/tags", catalogHandler.Tags)
	api.Get("/tags/:id<int>", catalogHandler.Tag)
	api.Get("/ingredients", catalogHandler.Ingredients)
	api.Get("/ingredients/:id<int>", catalogHandler.Ingredient)

	// Recipes
	recipes := api.Group("/recipes")
	recipes.Get("/", optionalAuth, recipeHandler.List)
	recipes.Post("/", requireAuth, recipeHandler.Create)
	recipes.Get("/download_shopping_cart", requireAuth, recipeHandler.DownloadShoppingCart)
	recipes.Get("/:id<int>", optionalAuth, recipeHandler.Get)
	recipes.Patch("/:id<int>", requireAuth, recipeHandler.Update)
	recipes.Delete("/:id<int>", requireAuth, recipeHandler.Delete)
	recipes.Post("/:id<int>/favorite", requireAuth, recipeHandler.AddFavorite)
	recipes.Delete("/:id<int>/favorite", requireAuth, recipeHandler.RemoveFavorite)
	recipes.Post("/:id<int>/shopping_cart", requireAuth, recipeHandler.AddToCart)
	recipes.Delete("/:id<int>/shopping_cart", requireAuth, recipeHandler.RemoveFromCart)

	admin := api.Group("/admin", optionalAuth, middleware.AdminRequired(db, cfg))
	admin.Post("/tags", catalogHandler.CreateTag)
	admin.Post("/ingredients", catalogHandler.CreateIngredient)
}
