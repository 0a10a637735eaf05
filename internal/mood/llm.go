package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

// completer is the slice of the OpenAI SDK the analyzer needs; tests
// substitute it.
type completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// openAICompleter wraps the OpenAI SDK with retry and logging.
type openAICompleter struct {
	client     *openai.Client
	modelName  string
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
}

func newOpenAICompleter(apiKey, modelName string, logger *zap.Logger) *openAICompleter {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openAICompleter{
		client:     &client,
		modelName:  modelName,
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// Complete sends a chat completion request with exponential backoff.
func (c *openAICompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info("retrying completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.modelName),
			Messages: messages,
		})
		if err != nil {
			lastErr = fmt.Errorf("chat completion request failed: %w", err)
			if !isRetryable(err) || ctx.Err() != nil {
				break
			}
			c.logger.Warn("completion request failed, will retry", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

// isRetryable excludes auth and invalid-request errors from retries.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") {
		return false
	}
	if strings.Contains(msg, "400") || strings.Contains(msg, "invalid") || strings.Contains(msg, "bad request") {
		return false
	}
	return true
}

// LLMAnalyzer classifies a completed check-in by asking an LLM directly,
// without going through the backend. When the model call fails or returns
// something unusable, the deterministic fallback analyzer takes over, so this
// path always yields a result.
type LLMAnalyzer struct {
	completer completer
	fallback  *FallbackAnalyzer
	logger    *zap.Logger
}

// NewLLMAnalyzer creates an analyzer backed by the OpenAI API.
func NewLLMAnalyzer(apiKey, modelName string, logger *zap.Logger) *LLMAnalyzer {
	return &LLMAnalyzer{
		completer: newOpenAICompleter(apiKey, modelName, logger),
		fallback:  NewFallbackAnalyzer(logger),
		logger:    logger,
	}
}

// llmResult is the JSON shape the prompt asks for.
type llmResult struct {
	Mood             string   `json:"mood"`
	Confidence       string   `json:"confidence"`
	EmotionsDetected []string `json:"emotionsDetected"`
	Reason           string   `json:"reason"`
}

// Analyze classifies the answers. It never returns an error; the fallback
// analyzer covers every failure mode.
func (a *LLMAnalyzer) Analyze(ctx context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error) {
	content, err := a.completer.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a compassionate mental health assistant for elderly care. Always respond with valid JSON only, no markdown formatting or code blocks."),
		openai.UserMessage(buildPrompt(answers)),
	})
	if err != nil {
		a.logger.Warn("LLM mood analysis failed, using fallback analyzer", zap.Error(err))
		return a.fallback.Analyze(ctx, answers)
	}

	result, err := parseLLMResult(content)
	if err != nil {
		a.logger.Warn("unusable LLM response, using fallback analyzer",
			zap.Error(err),
			zap.String("response", content),
		)
		return a.fallback.Analyze(ctx, answers)
	}

	result.AnalysisSource = model.AnalysisSourceAI
	return normalize(result), nil
}

func buildPrompt(answers []model.QuestionAnswer) string {
	var b strings.Builder
	b.WriteString("Analyze the emotional well-being of this elderly user based on their daily check-in responses.\n\n")
	for i, qa := range answers {
		fmt.Fprintf(&b, "Q%d (%s): %s\nA%d: %s\n", i+1, qa.Category, qa.Question, i+1, qa.Answer)
	}
	b.WriteString(`
Classify their mood and respond ONLY with valid JSON in this exact format:
{
  "mood": "Normal" or "Stressed" or "Depressed" or "Highly Depressed",
  "confidence": "low" or "medium" or "high",
  "emotionsDetected": ["emotion1", "emotion2"],
  "reason": "one or two sentences explaining the classification"
}`)
	return b.String()
}

// parseLLMResult parses the model's JSON, stripping markdown fences the model
// sometimes adds.
func parseLLMResult(content string) (*model.MoodResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed llmResult
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if parsed.Mood == "" {
		return nil, fmt.Errorf("response is missing mood")
	}

	return &model.MoodResult{
		Mood:             model.Mood(parsed.Mood),
		Confidence:       model.Confidence(parsed.Confidence),
		EmotionsDetected: parsed.EmotionsDetected,
		Reason:           parsed.Reason,
	}, nil
}
