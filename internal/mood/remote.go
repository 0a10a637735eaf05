package mood

import (
	"context"
	"fmt"

	"github.com/silvercare/companion/internal/api"
	"github.com/silvercare/companion/pkg/model"
)

// RemoteAnalyzer sends the collected answers to the backend's mood-analysis
// endpoint. This is the default analysis path.
type RemoteAnalyzer struct {
	client *api.Client
}

// NewRemoteAnalyzer creates a RemoteAnalyzer on top of the gateway client.
func NewRemoteAnalyzer(client *api.Client) *RemoteAnalyzer {
	return &RemoteAnalyzer{client: client}
}

// Analyze submits the batch and returns the backend's structured result.
func (a *RemoteAnalyzer) Analyze(ctx context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error) {
	result, err := a.client.AnalyzeMood(ctx, answers)
	if err != nil {
		return nil, fmt.Errorf("mood analysis request failed: %w", err)
	}
	return normalize(result), nil
}

// normalize clamps out-of-range backend values to the known enums so the
// result view never has to branch on unexpected strings.
func normalize(r *model.MoodResult) *model.MoodResult {
	switch r.Mood {
	case model.MoodNormal, model.MoodStressed, model.MoodDepressed, model.MoodHighlyDepressed:
	default:
		r.Mood = model.MoodUnknown
	}

	switch r.Confidence {
	case model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh:
	default:
		r.Confidence = model.ConfidenceLow
	}

	switch r.AnalysisSource {
	case model.AnalysisSourceAI, model.AnalysisSourceFallback:
	default:
		r.AnalysisSource = model.AnalysisSourceFallback
	}

	if r.EmotionsDetected == nil {
		r.EmotionsDetected = []string{}
	}

	return r
}
