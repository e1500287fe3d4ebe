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

type GoalHandler struct {
	log   *logger.Logger
	goals services.GoalService
}

func NewGoalHandler(log *logger.Logger, goals services.GoalService) *GoalHandler {
	return &GoalHandler{log: log.With("handler", "GoalHandler"), goals: goals}
}

type goalDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsPredefined bool      `json:"isPredefined"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toGoalDTO(g *types.Goal) goalDTO {
	return goalDTO{
		ID:           g.ID,
		Name:         g.Name,
		IsPredefined: g.IsPredefined,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

type goalNameRequest struct {
	Name string `json:"name"`
}

// GET /api/goals
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	goals, err := h.goals.ListGoals(requestDB(c), userID, requestLanguage(c, c.Query("lang")))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out := make([]goalDTO, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalDTO(g))
	}
	response.RespondOK(c, gin.H{"goals": out, "totalCount": len(out)})
}

// POST /api/goals
// body: { "name": "..." }
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req goalNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid_request", err)
		return
	}
	g, err := h.goals.CreateCustomGoal(requestDB(c), userID, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"id": g.ID})
}

// PATCH /api/goals/:id
// body: { "name": "..." }
func (h *GoalHandler) RenameGoal(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "invalid_goal_id")
	if !ok {
		return
	}
	var req goalNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid_request", err)
		return
	}
	g, err := h.goals.RenameCustomGoal(requestDB(c), userID, goalID, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, toGoalDTO(g))
}

// DELETE /api/goals/:id
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "invalid_goal_id")
	if !ok {
		return
	}
	if err := h.goals.DeleteGoal(requestDB(c), userID, goalID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
