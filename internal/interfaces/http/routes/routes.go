// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/favorite"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/promo"
	redisdb "github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-api/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Dependencies carries everything the route handlers are built from.
// Redis and Metrics may be nil.
type Dependencies struct {
	DB      *gorm.DB
	Redis   *redisdb.Client
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Store
}

type services struct {
	catalog   *catalog.Service
	favorites *favorite.Service
	carts     *cart.Service
	promos    *promo.Service
	orders    *order.Service
}

func newServices(deps Dependencies) *services {
	promos := promo.NewService(deps.DB, deps.Redis, deps.Config, deps.Logger, deps.Metrics)
	return &services{
		catalog:   catalog.NewService(deps.DB, deps.Redis, deps.Config, deps.Logger),
		favorites: favorite.NewService(deps.DB, deps.Logger),
		carts:     cart.NewService(deps.DB, deps.Config, deps.Logger, deps.Metrics),
		promos:    promos,
		orders:    order.NewService(deps.DB, promos, deps.Config, deps.Logger, deps.Metrics),
	}
}

// SetupRoutes registers every API route on rg
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	svc := newServices(deps)
	cfg := deps.Config

	rg.Use(middleware.OptionalAuthMiddleware(cfg))

	setupCatalogRoutes(rg, svc, cfg)
	setupCartRoutes(rg, svc, cfg)
	setupOrderRoutes(rg, svc, cfg)
	setupAdminRoutes(rg, svc, cfg)
}

// setupCatalogRoutes sets up category, product, accessory and favorite routes
func setupCatalogRoutes(rg *gin.RouterGroup, svc *services, cfg *config.Config) {
	catalogHandler := handlers.NewCatalogHandler(svc.catalog, svc.favorites)
	favoriteHandler := handlers.NewFavoriteHandler(svc.favorites)

	categories := rg.Group("/categories")
	{
		categories.GET("", catalogHandler.ListCategories)
		categories.GET("/:slug", catalogHandler.GetCategory)
	}

	products := rg.Group("/products")
	{
		products.GET("", catalogHandler.ListProducts)
		products.GET("/:slug", catalogHandler.GetProduct)
		products.GET("/:slug/similar", catalogHandler.SimilarProducts)
		products.POST("/:slug/like", middleware.AuthMiddleware(cfg), catalogHandler.ToggleLike)
	}

	rg.GET("/accessories", catalogHandler.ListAccessories)

	favorites := rg.Group("/favorites")
	favorites.Use(middleware.AuthMiddleware(cfg))
	{
		favorites.GET("", favoriteHandler.List)
		favorites.POST("", favoriteHandler.Add)
		favorites.DELETE("", favoriteHandler.Remove)
	}
}

// setupCartRoutes sets up cart and promo preview routes. Both work for
// authenticated users and anonymous sessions.
func setupCartRoutes(rg *gin.RouterGroup, svc *services, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(svc.carts)
	promoHandler := handlers.NewPromoHandler(svc.promos, svc.carts)

	carts := rg.Group("/cart")
	carts.Use(middleware.Identity(cfg))
	{
		carts.GET("", cartHandler.GetCart)
		carts.DELETE("", cartHandler.ClearCart)
		carts.POST("/items", cartHandler.AddItem)
		carts.PATCH("/items/:id", cartHandler.UpdateItem)
		carts.DELETE("/items/:id", cartHandler.RemoveItem)
		carts.POST("/merge", middleware.AuthMiddleware(cfg), cartHandler.MergeCart)
	}

	promos := rg.Group("/promo-codes")
	promos.Use(middleware.Identity(cfg))
	{
		promos.POST("/preview", promoHandler.Preview)
		promos.GET("/applied", promoHandler.GetApplied)
		promos.DELETE("/applied", promoHandler.ForgetApplied)
	}
}

// setupOrderRoutes sets up order and delivery option routes
func setupOrderRoutes(rg *gin.RouterGroup, svc *services, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(svc.orders)

	rg.GET("/delivery-options", orderHandler.ListDeliveryOptions)

	orders := rg.Group("/orders")
	orders.Use(middleware.Identity(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.POST("", orderHandler.PlaceOrder)
		orders.GET("/:id", orderHandler.GetOrder)
	}
}

// setupAdminRoutes sets up admin related routes
func setupAdminRoutes(rg *gin.RouterGroup, svc *services, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(svc.orders)
	promoHandler := handlers.NewPromoHandler(svc.promos, svc.carts)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.AdminListOrders)
			orders.PUT("/:id/status", orderHandler.AdminUpdateStatus)
		}

		promos := admin.Group("/promo-codes")
		{
			promos.POST("", promoHandler.AdminCreate)
			promos.POST("/:code/redeem", promoHandler.AdminRedeem)
		}
	}
}
