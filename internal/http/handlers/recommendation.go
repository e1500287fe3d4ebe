package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type RecommendationHandler struct {
	log       *logger.Logger
	recommend services.RecommendationService
}

func NewRecommendationHandler(log *logger.Logger, recommend services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		log:       log.With("handler", "RecommendationHandler"),
		recommend: recommend,
	}
}

type recommendRequest struct {
	GoalID               uuid.UUID `json:"goalId" binding:"required"`
	TotalDurationSeconds int       `json:"totalDurationSeconds"`
	LanguageCode         string    `json:"languageCode"`
}

type recommendedStepsResponse struct {
	Steps                  []types.RecommendedStep `json:"steps"`
	TotalSteps             int                     `json:"totalSteps"`
	TotalAllocatedDuration int                     `json:"totalAllocatedDuration"`
	Message                string                  `json:"message"`
}

type lastRecommendedResponse struct {
	IsExpired            bool                    `json:"isExpired"`
	Steps                []types.RecommendedStep `json:"steps,omitempty"`
	TotalDurationSeconds int                     `json:"totalDurationSeconds,omitempty"`
	CreatedAt            *time.Time              `json:"createdAt,omitempty"`
	ExpiresAt            *time.Time              `json:"expiresAt,omitempty"`
}

// POST /api/recommend-steps
// body: { "goalId": "...", "totalDurationSeconds": 600, "languageCode": "ko" }
func (h *RecommendationHandler) RecommendSteps(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid_request", err)
		return
	}
	lang := requestLanguage(c, req.LanguageCode)
	rec, err := h.recommend.RecommendSteps(requestDB(c), userID, req.GoalID, req.TotalDurationSeconds, lang)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, recommendedStepsResponse{
		Steps:                  rec.Steps,
		TotalSteps:             rec.TotalSteps,
		TotalAllocatedDuration: rec.TotalAllocatedDuration,
		Message:                rec.Message,
	})
}

// GET /api/goals/:id/last-recommended-steps?lang=
func (h *RecommendationHandler) LastRecommendedSteps(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "invalid_goal_id")
	if !ok {
		return
	}
	last, err := h.recommend.LastRecommendedSteps(requestDB(c), userID, goalID, requestLanguage(c, c.Query("lang")))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if last.IsExpired {
		response.RespondOK(c, lastRecommendedResponse{IsExpired: true})
		return
	}
	response.RespondOK(c, lastRecommendedResponse{
		Steps:                last.Steps,
		TotalDurationSeconds: last.TotalDurationSeconds,
		CreatedAt:            &last.CreatedAt,
		ExpiresAt:            &last.ExpiresAt,
	})
}
