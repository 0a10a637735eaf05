package api

import (
	"context"
	"net/url"
	"time"

	"github.com/silvercare/companion/pkg/model"
)

// wireQuestion is the backend's daily-question shape.
type wireQuestion struct {
	ID           string `json:"_id"`
	QuestionText string `json:"questionText"`
	Category     string `json:"category"`
}

// DailyQuestions fetches today's check-in questions.
func (c *Client) DailyQuestions(ctx context.Context) ([]model.Question, error) {
	var data struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := c.Get(ctx, "/questions/daily", &data); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(data.Questions))
	for _, q := range data.Questions {
		questions = append(questions, model.Question{
			Text:     q.QuestionText,
			Category: q.Category,
		})
	}
	return questions, nil
}

// AnalyzeMood submits the collected question/answer triples for analysis and
// returns the structured mood result.
func (c *Client) AnalyzeMood(ctx context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error) {
	body := struct {
		QuestionAnswers []model.QuestionAnswer `json:"questionAnswers"`
	}{QuestionAnswers: answers}

	var result model.MoodResult
	if err := c.Post(ctx, "/mood/analyze", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Messages fetches community messages. A zero since fetches everything;
// otherwise only messages created after since are returned.
func (c *Client) Messages(ctx context.Context, since time.Time) ([]model.ChatMessage, error) {
	endpoint := "/chat/messages"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	var data struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := c.Get(ctx, endpoint, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// SendMessage posts one message to the community stream and returns the
// canonical server-assigned message.
func (c *Client) SendMessage(ctx context.Context, text string) (*model.ChatMessage, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: text}

	var data struct {
		Message model.ChatMessage `json:"message"`
	}
	if err := c.Post(ctx, "/chat/messages", body, &data); err != nil {
		return nil, err
	}
	return &data.Message, nil
}

// OnlineCount fetches how many community members are currently online.
func (c *Client) OnlineCount(ctx context.Context) (int, error) {
	var data struct {
		OnlineCount int `json:"onlineCount"`
	}
	if err := c.Get(ctx, "/chat/online-count", &data); err != nil {
		return 0, err
	}
	return data.OnlineCount, nil
}

// Dashboard fetches the caretaker's aggregate view.
func (c *Client) Dashboard(ctx context.Context) (*model.CaretakerDashboard, error) {
	var data model.CaretakerDashboard
	if err := c.Get(ctx, "/caretaker/dashboard", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ElderlyUsers fetches the elderly users assigned to the caretaker.
func (c *Client) ElderlyUsers(ctx context.Context) ([]model.ElderlyUser, error) {
	var data []model.ElderlyUser
	if err := c.Get(ctx, "/caretaker/elderly-users", &data); err != nil {
		return nil, err
	}
	return data, nil
}
