package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
)

var (
	supportedTags = []language.Tag{language.Korean, language.English}
	tagLanguages  = []types.Language{types.LanguageKorean, types.LanguageEnglish}
)

// ResolveAcceptLanguage picks the best supported language for an
// Accept-Language header value, or def when nothing matches.
func ResolveAcceptLanguage(header string, def types.Language) types.Language {
	if header == "" {
		return def
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return def
	}
	matcher := language.NewMatcher(supportedTags)
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(tagLanguages) {
		return def
	}
	return tagLanguages[idx]
}

// Language stores the request language from Accept-Language on the request
// data. Handlers may still override it with an explicit field.
func Language(def types.Language) gin.HandlerFunc {
	if !def.Valid() {
		def = types.LanguageKorean
	}
	return func(c *gin.Context) {
		lang := ResolveAcceptLanguage(c.GetHeader("Accept-Language"), def)
		ctx := c.Request.Context()
		rd := ctxutil.GetRequestData(ctx)
		if rd == nil {
			rd = &ctxutil.RequestData{}
		} else {
			cp := *rd
			rd = &cp
		}
		rd.Language = lang.String()
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(ctx, rd))
		c.Next()
	}
}
