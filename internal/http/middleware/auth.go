package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		log:         log.With("middleware", "AuthMiddleware"),
		authService: authService,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.RespondError(c, apierr.New(apierr.KindUnauthorized, "auth", "missing bearer token", nil))
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("token rejected", "path", c.Request.URL.Path, "error", err)
			response.RespondError(c, err)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireOperator lets only operator accounts through. It must run after RequireAuth.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || !rd.IsOperator {
			response.RespondError(c, apierr.Forbidden("auth.operator", "operator access required"))
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
