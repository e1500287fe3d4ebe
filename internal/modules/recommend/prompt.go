package recommend

import (
	"fmt"

	types "github.com/yungbote/stepwise-backend/internal/domain"
)

const (
	minSuggestedSteps = 3
	maxSuggestedSteps = 7
)

func promptRecommendSteps(goalName string, totalSeconds int, lang types.Language) (system string, user string) {
	switch lang {
	case types.LanguageEnglish:
		system = `You break everyday activities into short, concrete, timed steps for people who benefit from structure.
Return ONLY JSON matching the schema. Each step is one simple action written as a short imperative sentence in English.
Durations are whole seconds and must add up to the requested total.`
		user = fmt.Sprintf(
			"Activity: %s\nTotal time: %d seconds\n\nTask: split the activity into %d to %d ordered steps whose durationSeconds sum to exactly %d.",
			goalName, totalSeconds, minSuggestedSteps, maxSuggestedSteps, totalSeconds,
		)
	default:
		system = `당신은 일상 활동을 짧고 구체적인 시간 단위 단계로 나누어 주는 도우미입니다.
스키마에 맞는 JSON만 반환하세요. 각 단계는 한국어로 된 짧고 간단한 행동 문장이어야 합니다.
소요 시간은 초 단위 정수이며 합계는 요청한 총 시간과 같아야 합니다.`
		user = fmt.Sprintf(
			"활동: %s\n총 시간: %d초\n\n작업: 활동을 %d~%d개의 순서 있는 단계로 나누고 durationSeconds의 합이 정확히 %d가 되도록 하세요.",
			goalName, totalSeconds, minSuggestedSteps, maxSuggestedSteps, totalSeconds,
		)
	}
	return system, user
}

func schemaRecommendSteps() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content":         map[string]any{"type": "string"},
						"durationSeconds": map[string]any{"type": "integer"},
					},
					"required":             []any{"content", "durationSeconds"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"steps"},
		"additionalProperties": false,
	}
}
