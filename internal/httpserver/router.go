package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Sessions hands out the checkout flow of a shopping session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*checkout.Flow, error)
}

type ProductService interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CategoryService interface {
	ListActive(ctx context.Context) ([]domain.Category, error)
}

// Deps are the services behind the routes. Coupons and Sessions are
// required; a nil Merger, Products or Categories disables its routes.
type Deps struct {
	Sessions   Sessions
	Coupons    checkout.CouponVerifier
	Merger     checkout.CartSyncer
	Products   ProductService
	Categories CategoryService
	Checks     map[string]Check
	// AllowedOrigins enables CORS for the listed storefront origins.
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Coupons == nil {
		return nil, errors.New("httpserver: sessions and coupons are required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.AllowedOrigins)))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Checks))

	h := &handlers{deps: deps, logger: logger}
	api := router.Group("/api")
	api.POST("/cupon/verificar", h.verifyCoupon)
	if deps.Merger != nil {
		api.POST("/carrito/sincronizar", h.mergeCart)
	}
	if deps.Products != nil {
		api.GET("/productos/:id", h.getProduct)
	}
	if deps.Categories != nil {
		api.GET("/categorias", h.listCategories)
	}

	session := api.Group("", sessionMiddleware())
	session.GET("/carrito", h.getCart)
	session.POST("/carrito/add", h.addItem)
	session.POST("/carrito/update", h.updateQuantity)
	session.POST("/carrito/remove", h.removeItem)
	session.POST("/carrito/clear", h.clearCart)
	session.POST("/carrito/cupon", h.applyCoupon)
	session.DELETE("/carrito/cupon", h.removeCoupon)
	session.POST("/carrito/envio", h.selectShipping)
	session.POST("/sesion/sincronizar", h.syncSession)
	session.POST("/checkout/iniciar", h.startCheckout)
	session.POST("/checkout/cancelar", h.cancelCheckout)
	session.POST("/checkout/direccion", h.submitAddress)
	session.POST("/checkout/confirmar", h.confirm)
	session.GET("/pedidos", h.listOrders)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With", SessionHeader, customerHeader},
		ExposeHeaders:    []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
