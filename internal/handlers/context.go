package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Goodness5/Vortexis-Backend/internal/auditctx"
	"github.com/Goodness5/Vortexis-Backend/internal/middleware"
	"github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// requestContext returns the request context annotated with the caller for
// audit logging, with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return auditctx.WithActor(c.Request.Context(), auditctx.Actor{
		UserID:    c.GetString(middleware.CtxUserIDKey),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}

// currentUserID returns the authenticated user id, writing a 401 when absent.
func currentUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// fail renders err. Internal failures are logged and reach the client as a
// generic 500.
func fail(c *gin.Context, err error) {
	if errors.KindOf(err) == errors.KindInternal {
		logger.WithModule("http").Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.CtxRequestIDKey)),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}
