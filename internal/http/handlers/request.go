package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
)

func requestDB(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// callerID returns the authenticated user, writing 401 when there is none.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, apierr.New(apierr.KindUnauthorized, "auth", "not authenticated", nil))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

// requestLanguage prefers an explicit code, then the language resolved from
// Accept-Language, then Korean.
func requestLanguage(c *gin.Context, explicit string) types.Language {
	if l, ok := types.ParseLanguage(explicit); ok {
		return l
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		if l, ok := types.ParseLanguage(rd.Language); ok {
			return l
		}
	}
	return types.LanguageKorean
}

func pathID(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondInvalid(c, code, err)
		return uuid.Nil, false
	}
	return id, true
}
