package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers"
)

func registerTeamRoutes(api *gin.RouterGroup, handler *handlers.TeamHandler) {
	teams := api.Group("/teams")
	{
		teams.POST("", handler.Create)
		teams.GET("/:id", handler.Get)
		teams.PATCH("/:id", handler.Update)
		teams.DELETE("/:id", handler.Delete)
		teams.POST("/:id/members", handler.AddMember)
		teams.DELETE("/:id/members", handler.RemoveMember)
		teams.POST("/:id/leave", handler.Leave)
		teams.GET("/:id/join-requests", handler.ListJoinRequests)
		teams.POST("/:id/join-requests", handler.RequestToJoin)
		teams.POST("/:id/join-requests/approve", handler.ApproveJoinRequest)
		teams.POST("/:id/join-requests/reject", handler.RejectJoinRequest)
		teams.POST("/:id/conversation", handler.SyncConversation)
	}
}

func registerInvitationRoutes(api *gin.RouterGroup, handler *handlers.InvitationHandler) {
	api.GET("/invitations", handler.Pending)
	api.POST("/invitations/:token/accept", handler.Accept)
}
