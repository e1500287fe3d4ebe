package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessions services.SessionService) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: sessions}
}

type stepRequest struct {
	Content         string `json:"content"`
	DurationSeconds int    `json:"durationSeconds"`
	// Order is accepted for client convenience; list position decides the stored order.
	Order int `json:"order,omitempty"`
}

type startSessionRequest struct {
	GoalID               uuid.UUID     `json:"goalId" binding:"required"`
	TotalDurationSeconds int           `json:"totalDurationSeconds"`
	Steps                []stepRequest `json:"steps"`
}

type completeSessionRequest struct {
	IsCompleted *bool `json:"isCompleted"`
}

type stepDTO struct {
	Order           int    `json:"order"`
	Content         string `json:"content"`
	DurationSeconds int    `json:"durationSeconds"`
}

type sessionDTO struct {
	ID                   uuid.UUID `json:"id"`
	GoalID               uuid.UUID `json:"goalId"`
	TotalDurationSeconds int       `json:"totalDurationSeconds"`
	IsCompleted          bool      `json:"isCompleted"`
	CreatedAt            time.Time `json:"createdAt"`
	Steps                []stepDTO `json:"steps"`
}

func toSessionDTO(s *types.Session) sessionDTO {
	steps := make([]stepDTO, 0, len(s.Steps))
	for _, st := range s.Steps {
		steps = append(steps, stepDTO{Order: st.Order, Content: st.Content, DurationSeconds: st.DurationSeconds})
	}
	return sessionDTO{
		ID:                   s.ID,
		GoalID:               s.GoalID,
		TotalDurationSeconds: s.TotalDurationSeconds,
		IsCompleted:          s.IsCompleted,
		CreatedAt:            s.CreatedAt,
		Steps:                steps,
	}
}

// POST /api/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid_request", err)
		return
	}
	in := make([]services.StepInput, 0, len(req.Steps))
	for _, s := range req.Steps {
		in = append(in, services.StepInput{Content: s.Content, DurationSeconds: s.DurationSeconds})
	}
	session, err := h.sessions.StartSession(requestDB(c), userID, req.GoalID, req.TotalDurationSeconds, in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"id": session.ID})
}

// PATCH /api/sessions/:id
// body: { "isCompleted": true }
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "invalid_session_id")
	if !ok {
		return
	}
	var req completeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid_request", err)
		return
	}
	if req.IsCompleted == nil {
		response.RespondError(c, apierr.Validation("sessions.Complete", "isCompleted is required"))
		return
	}
	if err := h.sessions.CompleteSession(requestDB(c), userID, sessionID, *req.IsCompleted); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.RespondInvalid(c, "invalid_"+name, err)
		return 0, false
	}
	return v, true
}

// GET /api/sessions?page=&size=
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "size")
	if !ok {
		return
	}
	res, err := h.sessions.ListSessions(requestDB(c), userID, page, size)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out := make([]sessionDTO, 0, len(res.Sessions))
	for _, s := range res.Sessions {
		out = append(out, toSessionDTO(s))
	}
	response.RespondOK(c, gin.H{
		"sessions":       out,
		"totalCount":     res.TotalCount,
		"completedCount": res.CompletedCount,
		"page":           res.Page,
		"size":           res.Size,
	})
}
