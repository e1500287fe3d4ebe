package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
)

const outingSteps = `{"steps":[
 {"content":"Wash up","durationSeconds":200},
 {"content":"Get dressed","durationSeconds":180},
 {"content":"Pack bag","durationSeconds":120},
 {"content":"Check the door","durationSeconds":80}
]}`

func TestRecommendStepsNormalizesAndCaches(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "rec@example.com")
	g, err := h.goals.CreateCustomGoal(h.dbc, u.ID, "Outing")
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	h.gen.set(outingSteps, nil)

	rec, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageEnglish)
	if err != nil {
		t.Fatalf("RecommendSteps: %v", err)
	}
	want := []int{207, 186, 124, 83}
	if rec.TotalSteps != 4 || rec.TotalAllocatedDuration != 600 {
		t.Fatalf("RecommendSteps: steps=%d allocated=%d", rec.TotalSteps, rec.TotalAllocatedDuration)
	}
	for i, s := range rec.Steps {
		if s.DurationSeconds != want[i] || s.Order != i+1 {
			t.Fatalf("step %d: %+v, want duration %d", i, s, want[i])
		}
	}
	if rec.Message == "" {
		t.Fatalf("expected a message")
	}

	again, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageEnglish)
	if err != nil || again.TotalAllocatedDuration != 600 {
		t.Fatalf("cached RecommendSteps: %+v err=%v", again, err)
	}
	rescaled, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 300, types.LanguageEnglish)
	if err != nil {
		t.Fatalf("rescaled RecommendSteps: %v", err)
	}
	if rescaled.TotalAllocatedDuration != 300 || rescaled.TotalSteps != 4 || rescaled.Steps[0].Content != "Wash up" {
		t.Fatalf("rescaled: %+v", rescaled)
	}
	if n := h.gen.calls.Load(); n != 1 {
		t.Fatalf("generator calls = %d, want 1", n)
	}

	// Korean is cached separately.
	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageKorean); err != nil {
		t.Fatalf("ko RecommendSteps: %v", err)
	}
	if n := h.gen.calls.Load(); n != 2 {
		t.Fatalf("generator calls = %d, want 2", n)
	}

	st, err := h.stats.Snapshot(h.dbc, uuid.Nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.CacheHits != 2 || st.CacheMisses != 2 || st.AIFailures != 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestRecommendStepsValidationAndOwnership(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "val@example.com")
	stranger := h.user(t, "val2@example.com")
	g, err := h.goals.CreateCustomGoal(h.dbc, u.ID, "Tidy")
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 0, types.LanguageKorean); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("zero total: err=%v", err)
	}
	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.Language("fr")); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("bad language: err=%v", err)
	}
	if _, err := h.recommend.RecommendSteps(h.dbc, stranger.ID, g.ID, 600, types.LanguageKorean); !apierr.IsKind(err, apierr.KindOwnership) {
		t.Fatalf("stranger: err=%v", err)
	}
	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, uuid.New(), 600, types.LanguageKorean); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("missing goal: err=%v", err)
	}
	if n := h.gen.calls.Load(); n != 0 {
		t.Fatalf("generator called %d times for rejected requests", n)
	}
}

func TestRecommendStepsFailures(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "fail@example.com")
	g, err := h.goals.CreateCustomGoal(h.dbc, u.ID, "Cook")
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	h.gen.set("", errors.New("boom"))
	_, err = h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageKorean)
	if !apierr.IsKind(err, apierr.KindUpstream) || !apierr.Retriable(err) {
		t.Fatalf("upstream failure: err=%v", err)
	}

	h.gen.set("not json", nil)
	_, err = h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageKorean)
	if !apierr.IsKind(err, apierr.KindParse) {
		t.Fatalf("parse failure: err=%v", err)
	}

	// failures are never cached
	h.gen.set(outingSteps, nil)
	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageKorean); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	st, _ := h.stats.Snapshot(h.dbc, u.ID)
	if st.AIFailures != 2 || st.CacheMisses != 3 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestLastRecommendedSteps(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "last@example.com")
	stranger := h.user(t, "last2@example.com")
	g, err := h.goals.CreateCustomGoal(h.dbc, u.ID, "Read")
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	last, err := h.recommend.LastRecommendedSteps(h.dbc, u.ID, g.ID, types.LanguageKorean)
	if err != nil || !last.IsExpired || len(last.Steps) != 0 {
		t.Fatalf("before any recommendation: %+v err=%v", last, err)
	}

	h.gen.set(outingSteps, nil)
	if _, err := h.recommend.RecommendSteps(h.dbc, u.ID, g.ID, 600, types.LanguageKorean); err != nil {
		t.Fatalf("RecommendSteps: %v", err)
	}
	last, err = h.recommend.LastRecommendedSteps(h.dbc, u.ID, g.ID, types.LanguageKorean)
	if err != nil || last.IsExpired || len(last.Steps) != 4 || last.TotalDurationSeconds != 600 {
		t.Fatalf("live entry: %+v err=%v", last, err)
	}
	if !last.ExpiresAt.After(last.CreatedAt) {
		t.Fatalf("expiry %v not after creation %v", last.ExpiresAt, last.CreatedAt)
	}
	if _, err := h.recommend.LastRecommendedSteps(h.dbc, stranger.ID, g.ID, types.LanguageKorean); !apierr.IsKind(err, apierr.KindOwnership) {
		t.Fatalf("stranger: err=%v", err)
	}

	h.clock.Advance(24*time.Hour + time.Second)
	last, err = h.recommend.LastRecommendedSteps(h.dbc, u.ID, g.ID, types.LanguageKorean)
	if err != nil || !last.IsExpired {
		t.Fatalf("after ttl: %+v err=%v", last, err)
	}

	st, _ := h.stats.Snapshot(h.dbc, u.ID)
	if st.FallbackReuses != 1 {
		t.Fatalf("fallback reuses = %d, want 1", st.FallbackReuses)
	}
}

func TestStatsResetKeepsDurableCompletion(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "stats@example.com")
	g, err := h.goals.CreateCustomGoal(h.dbc, u.ID, "Walk")
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	var first uuid.UUID
	for i := 0; i < 2; i++ {
		s, err := h.sessions.StartSession(h.dbc, u.ID, g.ID, 60, []StepInput{{"walk", 60}})
		if err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		if i == 0 {
			first = s.ID
		}
	}
	if err := h.sessions.CompleteSession(h.dbc, u.ID, first, true); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	h.stats.CacheHit()
	h.stats.CacheMiss()
	h.stats.RecordFallbackReuse()

	st, err := h.stats.Snapshot(h.dbc, u.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.CompletionRate != 0.5 || st.CacheHits != 1 || st.FallbackReuses != 1 {
		t.Fatalf("before reset: %+v", st)
	}

	h.stats.Reset()
	st, err = h.stats.Snapshot(h.dbc, u.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.CacheHits != 0 || st.CacheMisses != 0 || st.FallbackReuses != 0 {
		t.Fatalf("volatile counters survived reset: %+v", st)
	}
	if st.TotalSessions != 2 || st.CompletedSessions != 1 || st.CompletionRate != 0.5 {
		t.Fatalf("durable completion changed: %+v", st)
	}
}
