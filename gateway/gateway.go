package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type ProductStore interface {
	ListProducts(ctx context.Context, q filter.ProductQuery) ([]models.Product, error)
	CountProducts(ctx context.Context, f filter.ProductFilter) (int64, error)
	CreateProduct(ctx context.Context, product *models.Product) (primitive.ObjectID, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, patch *models.ProductPatch) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) (*repository.DeleteResult, error)
}

type OrderStore interface {
	ListOrders(ctx context.Context, f filter.OrderFilter, limit int64) ([]models.Order, error)
	CountOrders(ctx context.Context, f filter.OrderFilter) (int64, error)
	SetOrderStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, string, error)
	UpdateOrder(ctx context.Context, id primitive.ObjectID, update *models.OrderUpdate) (*models.Order, error)
	DeleteOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
}

// Restocker takes inventory jobs without blocking the caller.
type Restocker interface {
	Restock(job inventory.Job)
}

// ProductCache stores product listing pages. Pages are read and written under
// the versioned key returned by ProductPageKey.
type ProductCache interface {
	ProductPageKey(ctx context.Context, key string) (string, error)
	ProductPage(ctx context.Context, pageKey string, dest interface{}) (bool, error)
	StoreProductPage(ctx context.Context, pageKey string, page interface{}) error
	InvalidateProducts(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the gateway serves requests with. Cache
// and Metrics are optional.
type Dependencies struct {
	Products  ProductStore
	Orders    OrderStore
	Restocker Restocker
	Cache     ProductCache
	Metrics   *metrics.Metrics
	Checks    map[string]Pinger
}

type Gateway struct {
	config    *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	server    *http.Server
	location  *time.Location
	products  ProductStore
	orders    OrderStore
	restocker Restocker
	cache     ProductCache
	checks    map[string]Pinger
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Dependencies) (*Gateway, error) {
	if deps.Products == nil || deps.Orders == nil || deps.Restocker == nil {
		return nil, errors.New("gateway requires product store, order store and restocker")
	}
	loc, err := cfg.Orders.Location()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	router.Use(metricsMiddleware(deps.Metrics))
	if len(cfg.Server.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	}

	return &Gateway{
		config: cfg,
		logger: logger,
		router: router,
		server: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		location:  loc,
		products:  deps.Products,
		orders:    deps.Orders,
		restocker: deps.Restocker,
		cache:     deps.Cache,
		checks:    deps.Checks,
	}, nil
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Storefront API is running")
	})
	g.router.GET("/healthz", g.readiness)
	g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := g.router.Group("/products")
	{
		products.GET("", g.listProducts)
		products.POST("", g.createProduct)
		products.PATCH("/:id", g.updateProduct)
		products.DELETE("/:id", g.deleteProduct)
	}

	orders := g.router.Group("/api/orders")
	{
		orders.GET("", g.listOrders)
		orders.PUT("/:orderId/status", g.updateOrderStatus)
		orders.PUT("/:orderId", g.updateOrder)
		orders.DELETE("/:orderId", g.deleteOrder)
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start serves HTTP until Shutdown is called.
func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(g.checks))
	for name, check := range g.checks {
		if err := check.Ping(ctx); err != nil {
			g.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
