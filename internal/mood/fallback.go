package mood

import (
	"context"
	"fmt"
	"strings"

	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

// Keyword groups for the deterministic classifier. Matching is substring
// based on the lowercased answers.
var (
	severeKeywords = map[string]string{
		"hopeless":  "hopelessness",
		"worthless": "worthlessness",
		"give up":   "despair",
		"no point":  "despair",
		"alone all": "isolation",
	}
	sadKeywords = map[string]string{
		"sad":       "sadness",
		"lonely":    "loneliness",
		"miss":      "longing",
		"crying":    "sadness",
		"depressed": "sadness",
		"empty":     "emptiness",
	}
	stressKeywords = map[string]string{
		"worried":      "worry",
		"anxious":      "anxiety",
		"stressed":     "stress",
		"nervous":      "anxiety",
		"can't sleep":  "restlessness",
		"cannot sleep": "restlessness",
		"pain":         "discomfort",
		"tired":        "fatigue",
	}
)

// FallbackAnalyzer classifies a check-in without any remote service, so a
// result is always available to route on. It is the last tier of the
// analysis resolution chain.
type FallbackAnalyzer struct {
	logger *zap.Logger
}

// NewFallbackAnalyzer creates a FallbackAnalyzer.
func NewFallbackAnalyzer(logger *zap.Logger) *FallbackAnalyzer {
	return &FallbackAnalyzer{logger: logger}
}

// Analyze scores the answers against the keyword groups. It never fails.
func (a *FallbackAnalyzer) Analyze(_ context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error) {
	text := strings.ToLower(joinAnswers(answers))

	var severe, sad, stressed int
	emotions := map[string]bool{}

	for keyword, emotion := range severeKeywords {
		if strings.Contains(text, keyword) {
			severe++
			emotions[emotion] = true
		}
	}
	for keyword, emotion := range sadKeywords {
		if strings.Contains(text, keyword) {
			sad++
			emotions[emotion] = true
		}
	}
	for keyword, emotion := range stressKeywords {
		if strings.Contains(text, keyword) {
			stressed++
			emotions[emotion] = true
		}
	}

	var mood model.Mood
	switch {
	case severe > 0:
		mood = model.MoodHighlyDepressed
	case sad >= 2:
		mood = model.MoodDepressed
	case sad == 1 || stressed >= 2:
		mood = model.MoodStressed
	default:
		mood = model.MoodNormal
	}

	detected := make([]string, 0, len(emotions))
	for emotion := range emotions {
		detected = append(detected, emotion)
	}
	if len(detected) == 0 {
		detected = []string{"contentment"}
	}

	a.logger.Info("fallback mood analysis",
		zap.String("mood", string(mood)),
		zap.Int("matched_severe", severe),
		zap.Int("matched_sad", sad),
		zap.Int("matched_stress", stressed),
	)

	return normalize(&model.MoodResult{
		Mood:             mood,
		Confidence:       model.ConfidenceLow,
		EmotionsDetected: detected,
		Reason:           fmt.Sprintf("Keyword screening of %d answers; no AI analysis was available.", len(answers)),
		AnalysisSource:   model.AnalysisSourceFallback,
	}), nil
}

func joinAnswers(answers []model.QuestionAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, qa := range answers {
		parts = append(parts, qa.Answer)
	}
	return strings.Join(parts, "\n")
}
