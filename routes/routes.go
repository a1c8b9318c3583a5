package routes

import (
	"rewear_go/controllers"
	"rewear_go/middleware"
	"rewear_go/websocket"

	"github.com/gin-gonic/gin"
)

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine) {
	// 应用全局中间件
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	api := r.Group("/api")
	{
		// ====== 认证路由 (无需认证) ======
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.NewAuthController().Register)
			auth.POST("/login", controllers.NewAuthController().Login)
			auth.POST("/refresh", controllers.NewAuthController().RefreshToken)
			auth.POST("/logout", controllers.NewAuthController().Logout)
		}

		// ====== 用户路由 ======
		users := api.Group("/users")
		{
			users.GET("/online", controllers.NewUserController().GetOnlineUsers)
			users.GET("/me/points", middleware.AuthMiddleware(), controllers.NewUserController().GetMyPoints)
			users.GET("/me/ledger", middleware.AuthMiddleware(), controllers.NewUserController().GetMyLedger)
			users.GET("/:id", controllers.NewUserController().GetUserProfile)
		}

		// ====== 物品路由 ======
		items := api.Group("/items")
		{
			items.GET("", controllers.NewItemController().BrowseItems)
			items.GET("/search", controllers.NewItemController().SearchItems)
			items.GET("/hot", controllers.NewItemController().GetHotItems)
			items.GET("/hot-keywords", controllers.NewItemController().GetHotKeywords)
			items.GET("/mine", middleware.AuthMiddleware(), controllers.NewItemController().GetMyItems)
			items.GET("/:id", middleware.OptionalAuthMiddleware(), controllers.NewItemController().GetItem)
			items.POST("", middleware.AuthMiddleware(), controllers.NewItemController().CreateItem)
			items.PUT("/:id", middleware.AuthMiddleware(), controllers.NewItemController().UpdateItem)
			items.DELETE("/:id", middleware.AuthMiddleware(), controllers.NewItemController().DeleteItem)

			// 交换操作
			items.POST("/:id/swap-request", middleware.AuthMiddleware(), controllers.NewExchangeController().RequestSwap)
			items.POST("/:id/redeem", middleware.AuthMiddleware(), controllers.NewExchangeController().RedeemItem)
		}

		// ====== 换物请求路由 ======
		swaps := api.Group("/swap-requests")
		{
			swaps.GET("", middleware.AuthMiddleware(), controllers.NewExchangeController().GetMySwapRequests)
		}

		// ====== 上传路由 ======
		api.POST("/upload/images", middleware.AuthMiddleware(), controllers.NewUploadController().UploadImages)

		// ====== 管理路由 ======
		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/items", controllers.NewAdminController().ListItems)
			admin.PUT("/items/:id/approve", controllers.NewAdminController().ApproveItem)
			admin.PUT("/items/:id/reject", controllers.NewAdminController().RejectItem)
			admin.DELETE("/items/:id", controllers.NewAdminController().DeleteItem)
			admin.GET("/stats", controllers.NewAdminController().GetStats)
		}
	}

	// ====== WebSocket通知路由 ======
	r.GET("/ws/notifications", middleware.AuthMiddleware(), websocket.HandleConnection)
}
