package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type StatsHandler struct {
	log   *logger.Logger
	stats services.StatsService
}

func NewStatsHandler(log *logger.Logger, stats services.StatsService) *StatsHandler {
	return &StatsHandler{log: log.With("handler", "StatsHandler"), stats: stats}
}

type statsResponse struct {
	CacheHits         int64   `json:"cacheHits"`
	CacheMisses       int64   `json:"cacheMisses"`
	AIFailures        int64   `json:"aiFailures"`
	FallbackReuses    int64   `json:"fallbackReuses"`
	CoalescedWaits    int64   `json:"coalescedWaits"`
	TotalSessions     int64   `json:"totalSessions"`
	CompletedSessions int64   `json:"completedSessions"`
	CompletionRate    float64 `json:"completionRate"`
}

// GET /api/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	st, err := h.stats.Snapshot(requestDB(c), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, statsResponse{
		CacheHits:         st.CacheHits,
		CacheMisses:       st.CacheMisses,
		AIFailures:        st.AIFailures,
		FallbackReuses:    st.FallbackReuses,
		CoalescedWaits:    st.CoalescedWaits,
		TotalSessions:     st.TotalSessions,
		CompletedSessions: st.CompletedSessions,
		CompletionRate:    st.CompletionRate,
	})
}

// POST /api/stats/reset
func (h *StatsHandler) ResetStats(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	h.stats.Reset()
	response.RespondOK(c, gin.H{"ok": true})
}
