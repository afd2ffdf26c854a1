package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"marketplace/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	products service.ProductService
	exporter service.CatalogExporter
	log      logrus.FieldLogger
}

// NewHandler builds the API handler. exporter may be nil when no export
// bucket is configured.
func NewHandler(users service.UserService, products service.ProductService, exporter service.CatalogExporter, log logrus.FieldLogger) (*Handler, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}
	return &Handler{
		users:    users,
		products: products,
		exporter: exporter,
		log:      log,
	}, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware(), requestLogger(h.log), metricsMiddleware(), corsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/register", h.register)
		api.GET("/products", h.listProducts)
		api.GET("/products/search", h.searchProducts)
		api.GET("/products/:id", h.getProduct)
	}

	authed := api.Group("", h.authenticate())
	{
		authed.GET("/me", h.me)
		authed.PATCH("/me", h.updateMe)
		authed.GET("/sellers/me/products", h.myProducts)
		authed.POST("/products", h.createProduct)
		authed.PUT("/products/:id", h.updateProduct)
		authed.PATCH("/products/:id/quantity", h.updateQuantity)
		authed.DELETE("/products/:id", h.deleteProduct)
	}

	admin := authed.Group("/admin", requireAdmin())
	{
		admin.GET("/users", h.listUsers)
		admin.GET("/users/:id", h.getUser)
		admin.PATCH("/users/:id", h.updateUser)
		admin.DELETE("/users/:id", h.deleteUser)
		admin.GET("/products", h.listProductsWithSellers)
		admin.POST("/exports", h.createExport)
		admin.GET("/exports", h.listExports)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, WWW-Authenticate")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func pathID(c *gin.Context, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + resource + " id"})
		return 0, false
	}
	return id, true
}
