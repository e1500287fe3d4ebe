package recommend

import (
	"fmt"
	"math"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
)

// Normalize rescales step durations so they sum to exactly total and
// renumbers the steps 1..N. The input slice is not modified.
//
// When the raw sum already equals total the durations pass through. Otherwise
// each duration becomes round(raw*total/sum) and the rounding remainder is
// applied to the largest adjusted step (earliest on ties). Every step keeps at
// least one second, so total must be at least the number of steps.
func Normalize(steps []types.RecommendedStep, total int) ([]types.RecommendedStep, error) {
	const op = "recommend.Normalize"
	if len(steps) == 0 {
		return nil, apierr.Validation(op, "recommendation contains no steps")
	}
	if total <= 0 {
		return nil, apierr.Validation(op, "totalDurationSeconds must be positive")
	}
	if total < len(steps) {
		return nil, apierr.Validation(op, fmt.Sprintf(
			"totalDurationSeconds %d is too short for %d steps", total, len(steps),
		))
	}
	sum := 0
	for _, s := range steps {
		if s.DurationSeconds <= 0 {
			return nil, apierr.Validation(op, "recommendation contains a non-positive step duration")
		}
		sum += s.DurationSeconds
	}

	out := types.CloneSteps(steps)
	for i := range out {
		out[i].Order = i + 1
	}
	if sum == total {
		return out, nil
	}

	ratio := float64(total) / float64(sum)
	adjSum := 0
	for i := range out {
		d := int(math.Round(float64(steps[i].DurationSeconds) * ratio))
		if d < 1 {
			d = 1
		}
		out[i].DurationSeconds = d
		adjSum += d
	}
	remainder := total - adjSum
	if remainder >= 0 {
		out[largestStep(out)].DurationSeconds += remainder
		return out, nil
	}
	// Shrinking: take the excess from the largest steps without dropping any below one second.
	for remainder < 0 {
		i := largestStep(out)
		take := min(-remainder, out[i].DurationSeconds-1)
		out[i].DurationSeconds -= take
		remainder += take
	}
	return out, nil
}

// largestStep returns the index of the longest step, earliest on ties.
func largestStep(steps []types.RecommendedStep) int {
	largest := 0
	for i := range steps {
		if steps[i].DurationSeconds > steps[largest].DurationSeconds {
			largest = i
		}
	}
	return largest
}
