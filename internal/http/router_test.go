package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	"github.com/yungbote/stepwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/domain/catalogue"
	httpH "github.com/yungbote/stepwise-backend/internal/http/handlers"
	httpMW "github.com/yungbote/stepwise-backend/internal/http/middleware"
	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *stubGenerator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.text, g.err
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	auth   services.AuthService
	gen    *stubGenerator
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := logger.Nop()
	cat, err := catalogue.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}

	userRepo := repos.NewUserRepo(db, log)
	goalRepo := repos.NewGoalRepo(db, log)
	sessionRepo := repos.NewSessionRepo(db, log)

	goals := services.NewGoalService(db, log, goalRepo, sessionRepo, cat)
	sessions := services.NewSessionService(db, log, goals, sessionRepo)
	stats := services.NewStatsService(log, sessionRepo)
	gen := &stubGenerator{}
	c := cache.New(cache.NewMemoryStore(0), log, cache.Options{TTL: time.Hour, ComputeTimeout: time.Second, Recorder: stats})
	rec := services.NewRecommendationService(log, goals, recommend.NewClient(gen, time.Second, log), c, stats)
	auth := services.NewAuthService(log, services.NewUserDirectory(log, userRepo, 0), "router-secret")

	engine := NewRouter(RouterConfig{
		Log:                   log,
		DefaultLanguage:       types.LanguageKorean,
		AuthMiddleware:        httpMW.NewAuthMiddleware(log, auth),
		RateLimiter:           httpMW.NewRateLimiter(log, httpMW.RateLimitConfig{FreePerMinute: 3, PremiumPerMinute: 30}),
		GoalHandler:           httpH.NewGoalHandler(log, goals),
		RecommendationHandler: httpH.NewRecommendationHandler(log, rec),
		SessionHandler:        httpH.NewSessionHandler(log, sessions),
		StatsHandler:          httpH.NewStatsHandler(log, stats),
		HealthHandler:         httpH.NewHealthHandler(),
	})

	u := testutil.SeedUser(t, context.Background(), db, "router@example.com", false)
	token, err := auth.IssueToken(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &testServer{t: t, db: db, engine: engine, auth: auth, gen: gen, token: token}
}

// operatorToken seeds an operator account and returns a bearer token for it.
func (s *testServer) operatorToken() string {
	s.t.Helper()
	u := testutil.SeedUser(s.t, context.Background(), s.db, "operator@example.com", false)
	if err := s.db.Model(&types.User{}).Where("id = ?", u.ID).Update("is_operator", true).Error; err != nil {
		s.t.Fatalf("promote operator: %v", err)
	}
	token, err := s.auth.IssueToken(u.ID, time.Hour)
	if err != nil {
		s.t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) response.APIError {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decode[response.ErrorEnvelope](t, rec)
	if env.Error.Kind != kind {
		t.Fatalf("error kind = %q, want %q", env.Error.Kind, kind)
	}
	return env.Error
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(nethttp.MethodGet, "/healthcheck", nil)
	if rec.Code != nethttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}

	s.token = ""
	expectError(t, s.do(nethttp.MethodGet, "/api/goals", nil), nethttp.StatusUnauthorized, "unauthorized")
	s.token = "garbage"
	expectError(t, s.do(nethttp.MethodGet, "/api/goals", nil), nethttp.StatusUnauthorized, "unauthorized")

	stranger, err := s.auth.IssueToken(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	s.token = stranger
	expectError(t, s.do(nethttp.MethodGet, "/api/goals", nil), nethttp.StatusUnauthorized, "unauthorized")
}

type goalsBody struct {
	Goals []struct {
		ID           uuid.UUID `json:"id"`
		Name         string    `json:"name"`
		IsPredefined bool      `json:"isPredefined"`
	} `json:"goals"`
	TotalCount int `json:"totalCount"`
}

func TestGoalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": "Outing Prep"})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]uuid.UUID](t, rec)
	goalID := created["id"]

	expectError(t, s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": "outing prep"}), nethttp.StatusConflict, "conflict")
	expectError(t, s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": ""}), nethttp.StatusBadRequest, "validation")

	rec = s.do(nethttp.MethodGet, "/api/goals", nil, "Accept-Language", "en-US")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	list := decode[goalsBody](t, rec)
	if list.TotalCount != len(list.Goals) || list.TotalCount < 2 {
		t.Fatalf("list: %+v", list)
	}
	var predefinedID uuid.UUID
	names := map[string]bool{}
	for _, g := range list.Goals {
		names[g.Name] = true
		if g.IsPredefined && predefinedID == uuid.Nil {
			predefinedID = g.ID
		}
	}
	if !names["Morning Routine"] || !names["Outing Prep"] {
		t.Fatalf("english names missing: %v", names)
	}

	expectError(t, s.do(nethttp.MethodPatch, "/api/goals/"+predefinedID.String(), map[string]string{"name": "x"}), nethttp.StatusConflict, "conflict")
	expectError(t, s.do(nethttp.MethodDelete, "/api/goals/"+predefinedID.String(), nil), nethttp.StatusConflict, "conflict")
	expectError(t, s.do(nethttp.MethodDelete, "/api/goals/not-a-uuid", nil), nethttp.StatusBadRequest, "validation")
	expectError(t, s.do(nethttp.MethodDelete, "/api/goals/"+uuid.NewString(), nil), nethttp.StatusNotFound, "not_found")

	rec = s.do(nethttp.MethodPatch, "/api/goals/"+goalID.String(), map[string]string{"name": "Go Out"})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(nethttp.MethodDelete, "/api/goals/"+goalID.String(), nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
}

const routerSteps = `[{"content":"Wash up","durationSeconds":200},{"content":"Get dressed","durationSeconds":180},{"content":"Pack bag","durationSeconds":120},{"content":"Lock door","durationSeconds":80}]`

type recommendBody struct {
	Steps []struct {
		Content         string `json:"content"`
		DurationSeconds int    `json:"durationSeconds"`
		Order           int    `json:"order"`
	} `json:"steps"`
	TotalSteps             int    `json:"totalSteps"`
	TotalAllocatedDuration int    `json:"totalAllocatedDuration"`
	Message                string `json:"message"`
}

func TestRecommendAndSessionFlow(t *testing.T) {
	s := newTestServer(t)
	s.gen.text = routerSteps

	created := decode[map[string]uuid.UUID](t, s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": "Outing Prep"}))
	goalID := created["id"]

	rec := s.do(nethttp.MethodGet, "/api/goals/"+goalID.String()+"/last-recommended-steps", nil)
	if rec.Code != nethttp.StatusOK || !decode[map[string]any](t, rec)["isExpired"].(bool) {
		t.Fatalf("last before recommend: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(nethttp.MethodPost, "/api/recommend-steps", map[string]any{
		"goalId":               goalID,
		"totalDurationSeconds": 600,
		"languageCode":         "en",
	})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("recommend: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[recommendBody](t, rec)
	if body.TotalSteps != 4 || body.TotalAllocatedDuration != 600 || body.Message == "" {
		t.Fatalf("recommend body: %+v", body)
	}

	rec = s.do(nethttp.MethodGet, "/api/goals/"+goalID.String()+"/last-recommended-steps?lang=en", nil)
	last := decode[map[string]any](t, rec)
	if rec.Code != nethttp.StatusOK || last["isExpired"].(bool) || last["totalDurationSeconds"].(float64) != 600 {
		t.Fatalf("last after recommend: %d %s", rec.Code, rec.Body.String())
	}

	steps := make([]map[string]any, 0, len(body.Steps))
	for _, st := range body.Steps {
		steps = append(steps, map[string]any{"content": st.Content, "durationSeconds": st.DurationSeconds, "order": st.Order})
	}
	rec = s.do(nethttp.MethodPost, "/api/sessions", map[string]any{
		"goalId":               goalID,
		"totalDurationSeconds": 600,
		"steps":                steps,
	})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("start session: %d %s", rec.Code, rec.Body.String())
	}
	sessionID := decode[map[string]uuid.UUID](t, rec)["id"]

	expectError(t, s.do(nethttp.MethodPost, "/api/sessions", map[string]any{
		"goalId":               goalID,
		"totalDurationSeconds": 600,
		"steps":                []map[string]any{{"content": "too short", "durationSeconds": 100}},
	}), nethttp.StatusBadRequest, "validation")
	expectError(t, s.do(nethttp.MethodPatch, "/api/sessions/"+sessionID.String(), map[string]any{}), nethttp.StatusBadRequest, "validation")

	rec = s.do(nethttp.MethodPatch, "/api/sessions/"+sessionID.String(), map[string]any{"isCompleted": true})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(nethttp.MethodGet, "/api/sessions?page=0&size=10", nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("list sessions: %d %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Sessions []struct {
			ID          uuid.UUID `json:"id"`
			IsCompleted bool      `json:"isCompleted"`
			Steps       []struct {
				Order           int `json:"order"`
				DurationSeconds int `json:"durationSeconds"`
			} `json:"steps"`
		} `json:"sessions"`
		TotalCount     int64 `json:"totalCount"`
		CompletedCount int64 `json:"completedCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(page.Sessions) != 1 || page.TotalCount != 1 || page.CompletedCount != 1 || !page.Sessions[0].IsCompleted {
		t.Fatalf("sessions page: %+v", page)
	}
	sum := 0
	for i, st := range page.Sessions[0].Steps {
		if st.Order != i+1 {
			t.Fatalf("step %d order %d", i, st.Order)
		}
		sum += st.DurationSeconds
	}
	if sum != 600 {
		t.Fatalf("session step sum = %d", sum)
	}
	expectError(t, s.do(nethttp.MethodGet, "/api/sessions?page=abc", nil), nethttp.StatusBadRequest, "validation")

	expectError(t, s.do(nethttp.MethodDelete, "/api/goals/"+goalID.String(), nil), nethttp.StatusConflict, "conflict")

	rec = s.do(nethttp.MethodGet, "/api/stats", nil)
	stats := decode[map[string]float64](t, rec)
	if rec.Code != nethttp.StatusOK || stats["cacheMisses"] != 1 || stats["fallbackReuses"] != 1 || stats["completionRate"] != 1 {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, s.do(nethttp.MethodPost, "/api/stats/reset", nil), nethttp.StatusForbidden, "forbidden")
	userToken := s.token
	s.token = s.operatorToken()
	if rec := s.do(nethttp.MethodPost, "/api/stats/reset", nil); rec.Code != nethttp.StatusOK {
		t.Fatalf("reset: %d", rec.Code)
	}
	s.token = userToken
	stats = decode[map[string]float64](t, s.do(nethttp.MethodGet, "/api/stats", nil))
	if stats["cacheMisses"] != 0 || stats["totalSessions"] != 1 {
		t.Fatalf("stats after reset: %v", stats)
	}
}

func TestRecommendErrorsAndRateLimit(t *testing.T) {
	s := newTestServer(t)
	created := decode[map[string]uuid.UUID](t, s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": "Cook"}))
	goalID := created["id"]
	req := map[string]any{"goalId": goalID, "totalDurationSeconds": 600}

	expectError(t, s.do(nethttp.MethodPost, "/api/recommend-steps", map[string]any{"totalDurationSeconds": 600}), nethttp.StatusBadRequest, "validation")

	s.gen.err = errors.New("connection reset")
	apiErr := expectError(t, s.do(nethttp.MethodPost, "/api/recommend-steps", req), nethttp.StatusBadGateway, "upstream")
	if !apiErr.Retriable {
		t.Fatalf("upstream error should be retriable")
	}

	s.gen.err = nil
	s.gen.text = "nope"
	expectError(t, s.do(nethttp.MethodPost, "/api/recommend-steps", req), nethttp.StatusBadGateway, "parse")

	// Free users get three per minute; the limiter runs before binding, so
	// the malformed request above spent a token too.
	rec := s.do(nethttp.MethodPost, "/api/recommend-steps", req)
	if rec.Code != nethttp.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStartSessionIgnoresOrderHints(t *testing.T) {
	s := newTestServer(t)
	goalID := decode[map[string]uuid.UUID](t, s.do(nethttp.MethodPost, "/api/goals", map[string]string{"name": "Bedtime"}))["id"]

	rec := s.do(nethttp.MethodPost, "/api/sessions", map[string]any{
		"goalId":               goalID,
		"totalDurationSeconds": 300,
		"steps": []map[string]any{
			{"content": "brush teeth", "durationSeconds": 60, "order": 3},
			{"content": "pajamas", "durationSeconds": 90, "order": 3},
			{"content": "read", "durationSeconds": 100, "order": -7},
			{"content": "lights off", "durationSeconds": 50, "order": 42},
		},
	})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("start session: %d %s", rec.Code, rec.Body.String())
	}

	var page struct {
		Sessions []struct {
			Steps []struct {
				Order   int    `json:"order"`
				Content string `json:"content"`
			} `json:"steps"`
		} `json:"sessions"`
	}
	rec = s.do(nethttp.MethodGet, "/api/sessions", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil || len(page.Sessions) != 1 {
		t.Fatalf("list sessions: %d %s err=%v", rec.Code, rec.Body.String(), err)
	}
	want := []string{"brush teeth", "pajamas", "read", "lights off"}
	got := page.Sessions[0].Steps
	if len(got) != len(want) {
		t.Fatalf("steps = %+v", got)
	}
	for i, st := range got {
		if st.Order != i+1 || st.Content != want[i] {
			t.Fatalf("step %d = %+v, want order %d %q", i, st, i+1, want[i])
		}
	}
}
