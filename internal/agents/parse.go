package agents

import (
	"encoding/json"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// cleanResponse strips markdown code fences that models sometimes wrap
// around JSON output.
func cleanResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// clarificationMessage returns a clarification_needed message when the
// response is a JSON object carrying a non-empty "questions" array, nil
// otherwise.
func clarificationMessage(role, response string) *protocol.Message {
	cleaned := cleanResponse(response)
	if !strings.HasPrefix(cleaned, "{") {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil
	}
	if _, ok := raw["questions"]; !ok {
		return nil
	}
	msg, err := protocol.Normalize(role, raw)
	if err != nil || !msg.IsClarification() {
		return nil
	}
	return msg
}

// parsePlanJSON parses the planner's response into a TaskPlan. A response
// that is not valid plan JSON falls back to a minimal single-step plan so
// planning never fails the turn. The second return reports whether the
// fallback was used.
func parsePlanJSON(content, userInput string) (*TaskPlan, bool) {
	cleaned := cleanResponse(content)

	var plan TaskPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return fallbackPlan(userInput), true
	}
	if plan.Description == "" && len(plan.Steps) == 0 {
		return fallbackPlan(userInput), true
	}

	if plan.Description == "" {
		plan.Description = userInput
	}
	if len(plan.Steps) == 0 {
		plan.Steps = []string{"Complete the requested task"}
	}
	if !plan.Mode.Valid() {
		plan.Mode = ModeImplement
	}
	return &plan, false
}

func fallbackPlan(userInput string) *TaskPlan {
	return &TaskPlan{
		Description: userInput,
		Steps:       []string{"Complete the requested task"},
		Mode:        ModeImplement,
	}
}

// parseReviewJSON parses the reviewer's response into a ReviewResult. A
// response that is not valid review JSON falls back to a neutral passing
// review: accepting the output is safer than iterating on garbage. The
// second return reports whether the fallback was used.
func parseReviewJSON(content string) (*ReviewResult, bool) {
	cleaned := cleanResponse(content)

	var review ReviewResult
	if err := json.Unmarshal([]byte(cleaned), &review); err != nil {
		return neutralReview("review response was not parseable; accepting output"), true
	}
	if review.QualityScore < 0 || review.QualityScore > 1 {
		review.QualityScore = neutralQualityScore
	}
	if len(review.Suggestions) > 3 {
		review.Suggestions = review.Suggestions[:3]
	}
	return &review, false
}

func neutralReview(feedback string) *ReviewResult {
	return &ReviewResult{
		QualityScore:   neutralQualityScore,
		NeedsIteration: false,
		Feedback:       feedback,
	}
}
