package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	"github.com/yungbote/stepwise-backend/internal/data/repos/testutil"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/domain/catalogue"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
)

// scriptedGenerator answers every GenerateJSON call with text or err.
type scriptedGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (g *scriptedGenerator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.err
}

func (g *scriptedGenerator) set(text string, err error) {
	g.mu.Lock()
	g.text, g.err = text, err
	g.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	db        *gorm.DB
	ctx       context.Context
	dbc       dbctx.Context
	goalRepo  repos.GoalRepo
	sessRepo  repos.SessionRepo
	goals     GoalService
	sessions  SessionService
	stats     StatsService
	recommend RecommendationService
	gen       *scriptedGenerator
	clock     *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	cat, err := catalogue.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	h := &harness{
		db:    db,
		ctx:   context.Background(),
		gen:   &scriptedGenerator{},
		clock: &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.dbc = dbctx.Context{Ctx: h.ctx}
	h.goalRepo = repos.NewGoalRepo(db, log)
	h.sessRepo = repos.NewSessionRepo(db, log)
	h.goals = NewGoalService(db, log, h.goalRepo, h.sessRepo, cat)
	h.sessions = NewSessionService(db, log, h.goals, h.sessRepo)
	h.stats = NewStatsService(log, h.sessRepo)
	c := cache.New(cache.NewMemoryStore(0), log, cache.Options{
		TTL:            24 * time.Hour,
		ComputeTimeout: 2 * time.Second,
		Clock:          h.clock.Now,
		Recorder:       h.stats,
	})
	ai := recommend.NewClient(h.gen, 2*time.Second, log)
	h.recommend = NewRecommendationService(log, h.goals, ai, c, h.stats)
	return h
}

func (h *harness) user(t *testing.T, email string) *types.User {
	t.Helper()
	return testutil.SeedUser(t, h.ctx, h.db, email, false)
}
