package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/auth/social"
	"github.com/Goodness5/Vortexis-Backend/internal/handlers"
)

func registerAuthRoutes(auth *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth.POST("/register", handler.Register)
	auth.POST("/verify-otp", handler.VerifyOTP)
	auth.POST("/resend-otp", handler.ResendOTP)
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/password/forgot", handler.ForgotPassword)
	auth.POST("/password/reset", handler.ResetPassword)
	auth.POST("/social/google", handler.Social(social.ProviderGoogle))
	auth.POST("/social/github", handler.Social(social.ProviderGitHub))
}

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("/me", handler.Me)
		users.PUT("/me/password", handler.ChangePassword)
		users.GET("/:id", handler.Get)
	}
}
