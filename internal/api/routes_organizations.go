package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/handlers"
)

func registerOrganizationRoutes(api *gin.RouterGroup, handler *handlers.OrganizationHandler) {
	orgs := api.Group("/organizations")
	{
		orgs.GET("", handler.List)
		orgs.POST("", handler.Create)
		orgs.GET("/:id", handler.Get)
		orgs.POST("/:id/moderators/invitations", handler.InviteModerator)
		orgs.DELETE("/:id/moderators/:userID", handler.RemoveModerator)
		orgs.POST("/moderator-invitations/:token/accept", handler.AcceptModeratorInvitation)
		orgs.POST("/moderator-invitations/:token/decline", handler.DeclineModeratorInvitation)
	}
}

func registerHackathonRoutes(api *gin.RouterGroup, handler *handlers.HackathonHandler) {
	hackathons := api.Group("/hackathons")
	{
		hackathons.POST("", handler.Create)
		hackathons.GET("/:id", handler.Get)
		hackathons.POST("/:id/register", handler.Register)
		hackathons.POST("/:id/judges", handler.AddJudge)
		hackathons.GET("/:id/teams", handler.Teams)
		hackathons.POST("/:id/judges-conversation", handler.SyncJudgesConversation)
	}
}
