package mood

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/silvercare/companion/internal/api"
	"github.com/silvercare/companion/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noTokens struct{}

func (noTokens) Token() string { return "" }

func newAnalysisBackend(t *testing.T, handler gin.HandlerFunc) *api.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/mood/analyze", handler)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return api.New(server.URL, 2*time.Second, noTokens{}, zap.NewNop())
}

func TestRemoteAnalyzer_ReturnsBackendResult(t *testing.T) {
	client := newAnalysisBackend(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"mood":             "Depressed",
				"confidence":       "high",
				"emotionsDetected": []string{"sadness"},
				"reason":           "Multiple mentions of loneliness.",
				"analysisSource":   "ai",
			},
		})
	})
	analyzer := NewRemoteAnalyzer(client)

	result, err := analyzer.Analyze(context.Background(), answersFrom("I feel so lonely"))
	require.NoError(t, err)
	assert.Equal(t, model.MoodDepressed, result.Mood)
	assert.Equal(t, model.AnalysisSourceAI, result.AnalysisSource)
}

func TestRemoteAnalyzer_ClampsUnknownBackendValues(t *testing.T) {
	client := newAnalysisBackend(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"mood": "Splendid", "confidence": "sure"},
		})
	})
	analyzer := NewRemoteAnalyzer(client)

	result, err := analyzer.Analyze(context.Background(), answersFrom("Great"))
	require.NoError(t, err)
	assert.Equal(t, model.MoodUnknown, result.Mood)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
	assert.NotNil(t, result.EmotionsDetected)
}

func TestRemoteAnalyzer_PropagatesBackendFailure(t *testing.T) {
	client := newAnalysisBackend(t, func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Analysis service unavailable"})
	})
	analyzer := NewRemoteAnalyzer(client)

	_, err := analyzer.Analyze(context.Background(), answersFrom("Fine"))
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.KindApplication, apiErr.Kind)
	assert.Equal(t, "Analysis service unavailable", apiErr.Message)
}
