package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type Router struct {
	healthController  *controller.HealthController
	catalogController *controller.CatalogController
	productController *controller.ProductController
	orderController   *controller.OrderController
	uploadController  *controller.UploadController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	healthController *controller.HealthController,
	catalogController *controller.CatalogController,
	productController *controller.ProductController,
	orderController *controller.OrderController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		healthController:  healthController,
		catalogController: catalogController,
		productController: productController,
		orderController:   orderController,
		uploadController:  uploadController,
		authMiddleware:    authMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.healthController.Health)

	staff := []gin.HandlerFunc{r.authMiddleware.Authenticate(), r.authMiddleware.RequireStaff()}

	v1 := router.Group("/api/v1")
	{
		sections := v1.Group("/sections")
		{
			sections.GET("", r.catalogController.ListSections)
			sections.POST("", append(staff, r.catalogController.CreateSection)...)
			sections.PUT("/:id", append(staff, r.catalogController.UpdateSection)...)
			sections.DELETE("/:id", append(staff, r.catalogController.DeleteSection)...)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", r.catalogController.ListCategories)
			categories.POST("", append(staff, r.catalogController.CreateCategory)...)
			categories.PUT("/:id", append(staff, r.catalogController.UpdateCategory)...)
			categories.PUT("/:id/options", append(staff, r.catalogController.ReplaceCategoryOptions)...)
			categories.DELETE("/:id", append(staff, r.catalogController.DeleteCategory)...)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/sku-availability", r.productController.CheckSKU)
			products.GET("/:id", r.productController.GetProduct)
			products.GET("/:id/primary-image", r.productController.GetPrimaryImage)
			products.GET("/:id/images", r.productController.ListImages)

			products.POST("", append(staff, r.productController.CreateProduct)...)
			products.PUT("/:id", append(staff, r.productController.UpdateProduct)...)
			products.DELETE("/:id", append(staff, r.productController.DeleteProduct)...)
			products.PUT("/:id/variants", append(staff, r.productController.ReplaceVariants)...)
			products.PUT("/:id/images", append(staff, r.productController.ReplaceImages)...)
			products.PUT("/:id/variants/:variant_id/image", append(staff, r.productController.SetVariantImage)...)
		}

		upload := v1.Group("/upload")
		upload.Use(staff...)
		{
			upload.POST("/image", r.uploadController.UploadImage)
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}

		orders := v1.Group("/orders")
		orders.Use(staff...)
		{
			orders.GET("", r.orderController.ListOrders)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.PUT("/:id/admin-status", r.orderController.UpdateAdminStatus)
			orders.PUT("/:id/status", r.orderController.UpdateStatus)
			orders.PUT("/:id/delivery-estimate", r.orderController.UpdateDeliveryEstimate)
			orders.PUT("/:id/items/:item_id/purchased", r.orderController.SetItemPurchased)
			orders.POST("/:id/items/toggle-all", r.orderController.ToggleAllPurchased)
		}

		mappings := v1.Group("/status-mappings")
		mappings.Use(staff...)
		{
			mappings.GET("", r.orderController.ListStatusMappings)
			mappings.PUT("/:admin_status", r.orderController.UpsertStatusMapping)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
