// Package server assembles the HTTP API.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/handlers"
	"backoffice/internal/middleware"
)

// Deps carries everything the routes need.
type Deps struct {
	Logger       *zap.Logger
	JWTSecret    string
	Ping         handlers.Pinger
	Catalog      handlers.ProductCatalog
	Sales        handlers.SaleService
	RemoteOrders handlers.RemoteOrderService
	Locations    handlers.LocationLister
	SaleLogs     handlers.SaleLogReader
	Sessions     handlers.TerminalSessions

	// CatalogRefresh is optional; without it the refresh route is not mounted.
	CatalogRefresh handlers.CatalogRefresher
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", handlers.Health(deps.Ping, logger))

	// Displays authenticate by pairing code only.
	displays := r.Group("/pos/displays/:code")
	displays.GET("/events", handlers.DisplayEvents(deps.Sessions, logger))
	displays.POST("/toggles", handlers.DisplayToggle(deps.Sessions, logger))

	pos := r.Group("/pos")
	pos.Use(middleware.CashierAuth(deps.JWTSecret, logger))
	{
		pos.GET("/products", handlers.GetPosProducts(deps.Catalog, logger))
		pos.GET("/products/:externalId/modifiers", handlers.GetProductModifiers(deps.Catalog, logger))
		pos.POST("/sales", handlers.CreateSale(deps.Sales, logger))
		pos.POST("/remote-orders", handlers.CreateRemoteOrder(deps.RemoteOrders, logger))
		pos.GET("/remote-locations", handlers.GetRemoteLocations(deps.Locations, logger))
		pos.GET("/sale-logs", handlers.GetSaleLogs(deps.SaleLogs, logger))
		if deps.CatalogRefresh != nil {
			pos.POST("/catalog/refresh",
				middleware.AuthGuard(deps.JWTSecret, "admin"),
				handlers.RefreshCatalog(deps.CatalogRefresh, logger))
		}

		terminals := handlers.NewTerminalHandlers(deps.Sessions, deps.Catalog, logger)
		pos.POST("/terminals", terminals.Create())
		pos.GET("/terminals/:code", terminals.State())
		pos.POST("/terminals/:code/items", terminals.AddItem())
		pos.DELETE("/terminals/:code/items/:itemId", terminals.RemoveItem())
		pos.PATCH("/terminals/:code/items/:itemId", terminals.UpdateQuantity())
		pos.PUT("/terminals/:code/sale-type", terminals.SetSaleType())
		pos.PUT("/terminals/:code/people", terminals.SetPeople())
		pos.POST("/terminals/:code/toppings/toggle", terminals.ToggleTopping())
		pos.POST("/terminals/:code/toppings/confirm", terminals.ConfirmToppings())
		pos.POST("/terminals/:code/toppings/cancel", terminals.CancelToppings())
		pos.POST("/terminals/:code/clear", terminals.Clear())
		pos.POST("/terminals/:code/checkout", terminals.Checkout())
	}

	return r
}
