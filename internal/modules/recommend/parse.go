package recommend

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
)

type rawStep struct {
	Content         string  `json:"content"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type rawPayload struct {
	Steps []rawStep `json:"steps"`
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", ...)
		if !strings.ContainsAny(s[:nl], "[{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseSteps decodes a model response holding either {"steps":[...]} or a
// bare array of {content, durationSeconds}. Durations are not validated here.
func ParseSteps(text string) ([]types.RecommendedStep, error) {
	const op = "recommend.ParseSteps"
	body := stripCodeFence(text)
	if body == "" {
		return nil, apierr.Parse(op, "empty recommendation response", nil)
	}

	var items []rawStep
	dec := []byte(body)
	switch {
	case bytes.HasPrefix(dec, []byte("[")):
		if err := json.Unmarshal(dec, &items); err != nil {
			return nil, apierr.Parse(op, "malformed recommendation response", err)
		}
	case bytes.HasPrefix(dec, []byte("{")):
		var payload rawPayload
		if err := json.Unmarshal(dec, &payload); err != nil {
			return nil, apierr.Parse(op, "malformed recommendation response", err)
		}
		items = payload.Steps
	default:
		return nil, apierr.Parse(op, "recommendation response is not JSON", nil)
	}

	out := make([]types.RecommendedStep, 0, len(items))
	for i, it := range items {
		content := strings.TrimSpace(it.Content)
		if content == "" {
			return nil, apierr.Parse(op, "recommendation step has no content", nil)
		}
		out = append(out, types.RecommendedStep{
			Content:         content,
			DurationSeconds: int(math.Round(it.DurationSeconds)),
			Order:           i + 1,
		})
	}
	return out, nil
}
