package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/platform/openai"
)

type fakeGenerator struct {
	text   string
	err    error
	delay  time.Duration
	system string
	user   string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	f.system, f.user = system, user
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestRecommendNormalizesToRequestedTotal(t *testing.T) {
	gen := &fakeGenerator{text: `{"steps":[
		{"content":"Shower","durationSeconds":200},
		{"content":"Get dressed","durationSeconds":180},
		{"content":"Pack bag","durationSeconds":120},
		{"content":"Shoes on","durationSeconds":80}]}`}
	c := NewClient(gen, time.Second, logger.Nop())

	steps, err := c.Recommend(context.Background(), "Outing Prep", 600, types.LanguageEnglish)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if types.SumDurations(steps) != 600 {
		t.Fatalf("sum=%d want 600", types.SumDurations(steps))
	}
	if len(steps) != 4 || steps[3].Order != 4 {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	if !strings.Contains(gen.user, "Outing Prep") || !strings.Contains(gen.user, "600") {
		t.Fatalf("prompt missing goal or total: %q", gen.user)
	}
}

func TestRecommendUsesLanguagePrompt(t *testing.T) {
	gen := &fakeGenerator{text: `[{"content":"샤워","durationSeconds":60}]`}
	c := NewClient(gen, time.Second, logger.Nop())
	if _, err := c.Recommend(context.Background(), "외출 준비", 60, types.LanguageKorean); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !strings.Contains(gen.system, "한국어") {
		t.Fatalf("expected korean system prompt")
	}
}

func TestRecommendErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		kind apierr.Kind
	}{
		{name: "transport", gen: &fakeGenerator{err: errors.New("connection reset")}, kind: apierr.KindUpstream},
		{name: "empty output", gen: &fakeGenerator{err: openai.ErrEmptyOutput}, kind: apierr.KindParse},
		{name: "malformed", gen: &fakeGenerator{text: "not json"}, kind: apierr.KindParse},
		{name: "no steps", gen: &fakeGenerator{text: `{"steps":[]}`}, kind: apierr.KindValidation},
		{name: "zero duration", gen: &fakeGenerator{text: `[{"content":"a","durationSeconds":0}]`}, kind: apierr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.gen, time.Second, logger.Nop())
			_, err := c.Recommend(context.Background(), "Chores", 300, types.LanguageEnglish)
			if !apierr.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestRecommendTimeoutIsUpstream(t *testing.T) {
	gen := &fakeGenerator{text: `[{"content":"a","durationSeconds":10}]`, delay: time.Second}
	c := NewClient(gen, 20*time.Millisecond, logger.Nop())

	start := time.Now()
	_, err := c.Recommend(context.Background(), "Chores", 10, types.LanguageEnglish)
	if !apierr.IsKind(err, apierr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not applied")
	}
}
