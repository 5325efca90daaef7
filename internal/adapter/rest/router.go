package rest

import "github.com/gin-gonic/gin"

// NewRouter wires the trade routes onto a gin engine
func NewRouter(handler *TradeHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	trades := api.Group("/trades")
	{
		trades.POST("", handler.Create)
		trades.GET("", handler.List)
		trades.GET("/summary", handler.Summary)
		trades.POST("/validate", handler.ValidateCreate)
		trades.GET("/:tradeId", handler.Get)
		trades.PUT("/:tradeId", handler.Amend)
		trades.DELETE("/:tradeId", handler.Delete)
		trades.POST("/:tradeId/terminate", handler.Terminate)
		trades.POST("/:tradeId/cancel", handler.Cancel)
		trades.POST("/:tradeId/validate", handler.ValidateAmend)
		trades.GET("/:tradeId/validate", handler.ValidateRead)
	}

	return router
}
