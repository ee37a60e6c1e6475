package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers"
)

func registerConversationRoutes(api *gin.RouterGroup, handler *handlers.ConversationHandler) {
	conversations := api.Group("/conversations")
	{
		conversations.GET("", handler.List)
		conversations.POST("/direct", handler.Direct)
		conversations.GET("/:id/messages", handler.Messages)
		conversations.POST("/:id/messages", handler.Post)
	}

	api.PATCH("/messages/:id", handler.Edit)
	api.DELETE("/messages/:id", handler.Delete)
}

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	api.GET("/notifications", handler.List)
	api.POST("/notifications/:id/read", handler.MarkRead)
}
