package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

// Status represents the lifecycle of one check-in session. Transitions only
// move forward: collecting -> submitting -> complete|failed.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusSubmitting Status = "submitting"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// QuestionSource fetches the daily question list from the backend.
type QuestionSource interface {
	DailyQuestions(ctx context.Context) ([]model.Question, error)
}

// Analyzer turns the collected answers into a mood result.
type Analyzer interface {
	Analyze(ctx context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error)
}

// Recorder persists the fact that a check-in happened. Recording must succeed
// independently of the analysis outcome so answers are never silently lost.
type Recorder interface {
	SetLastCheckIn(t time.Time) error
}

// Pacing configures the conversational delays between prompts. They exist for
// UI feel only; tests set them to zero.
type Pacing struct {
	GreetingDelay time.Duration
	QuestionDelay time.Duration
}

// Turn is the sequencer's reply to one user action.
type Turn struct {
	// Prompt is the next question to show, empty once the flow is done.
	Prompt string
	// Done is true when all questions are answered and submission finished.
	Done bool
	// Result is the mood analysis, present only on successful completion.
	Result *model.MoodResult
	// Message is bot-voiced text accompanying completion or failure.
	Message string
}

// Sequencer drives the elderly user through the ordered daily questions one
// at a time and submits all answers as a single batch. It is not safe for
// concurrent use; like the screen it models, all calls happen on one
// event loop.
type Sequencer struct {
	source   QuestionSource
	analyzer Analyzer
	recorder Recorder
	pacing   Pacing
	logger   *zap.Logger

	questions []model.Question
	answers   []string
	current   int
	status    Status
	result    *model.MoodResult
	failure   string
}

// NewSequencer creates a sequencer for one check-in session.
func NewSequencer(source QuestionSource, analyzer Analyzer, recorder Recorder, pacing Pacing, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		source:   source,
		analyzer: analyzer,
		recorder: recorder,
		pacing:   pacing,
		logger:   logger,
		status:   StatusCollecting,
	}
}

// fallbackQuestions is the canonical built-in list used whenever the remote
// fetch fails or returns nothing, so the flow is never blocked.
func fallbackQuestions() []model.Question {
	return []model.Question{
		{Text: "How are you feeling today?", Category: "emotional"},
		{Text: "How well did you sleep last night?", Category: "sleep"},
		{Text: "Have you eaten your meals today?", Category: "daily-living"},
		{Text: "Are you experiencing any physical discomfort or pain?", Category: "physical"},
		{Text: "Is there anything particular worrying you right now?", Category: "anxiety"},
	}
}

// Start fetches the question list (falling back to the built-in list on any
// failure) and produces the greeting plus the first question prompt. The
// first prompt follows the configured greeting delay.
func (s *Sequencer) Start(ctx context.Context) (greeting, prompt string) {
	questions, err := s.source.DailyQuestions(ctx)
	if err != nil || len(questions) == 0 {
		if err != nil {
			s.logger.Warn("daily question fetch failed, using fallback list", zap.Error(err))
		}
		questions = fallbackQuestions()
	}
	s.questions = questions

	s.logger.Info("check-in session started", zap.Int("question_count", len(questions)))

	greeting = fmt.Sprintf(
		"Hello! I'm here to check in on how you're doing today. I'll ask you %d simple questions about your well-being. Please answer honestly so I can better understand how you're feeling.",
		len(questions),
	)

	s.pause(ctx, s.pacing.GreetingDelay)
	return greeting, s.questionPrompt(0)
}

// SubmitAnswer records one answer and advances the flow. It is a no-op when
// the session is no longer collecting, when the text trims to empty, or when
// every question has already been answered; the returned Turn is nil in
// those cases. The final accepted answer triggers the batch submission.
func (s *Sequencer) SubmitAnswer(ctx context.Context, text string) *Turn {
	if s.status != StatusCollecting {
		return nil
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return nil
	}
	if s.current >= len(s.questions) {
		return nil
	}

	s.answers = append(s.answers, answer)
	s.current++

	if s.current < len(s.questions) {
		s.pause(ctx, s.pacing.QuestionDelay)
		return &Turn{Prompt: s.questionPrompt(s.current)}
	}

	s.status = StatusSubmitting
	s.pause(ctx, s.pacing.QuestionDelay)
	return s.submit(ctx)
}

// submit packages the question/answer/category triples positionally and hands
// them to the analyzer. The completion timestamp is recorded whether or not
// analysis succeeds.
func (s *Sequencer) submit(ctx context.Context) *Turn {
	batch := make([]model.QuestionAnswer, 0, len(s.questions))
	for i, q := range s.questions {
		batch = append(batch, model.QuestionAnswer{
			Question: q.Text,
			Answer:   s.answers[i],
			Category: q.Category,
		})
	}

	result, err := s.analyzer.Analyze(ctx, batch)

	if recErr := s.recorder.SetLastCheckIn(time.Now()); recErr != nil {
		s.logger.Warn("failed to record check-in timestamp", zap.Error(recErr))
	}

	if err != nil {
		s.logger.Error("mood analysis failed", zap.Error(err))
		s.status = StatusFailed
		s.failure = "There was an issue analyzing your responses, but don't worry. Your answers have been recorded. Please try again later."
		return &Turn{Done: true, Message: s.failure}
	}

	s.status = StatusComplete
	s.result = result

	s.logger.Info("check-in session completed",
		zap.String("mood", string(result.Mood)),
		zap.String("confidence", string(result.Confidence)),
		zap.String("analysis_source", string(result.AnalysisSource)),
		zap.Int("answer_count", len(s.answers)),
	)

	return &Turn{Done: true, Result: result, Message: empathyMessage(result.Mood)}
}

func (s *Sequencer) questionPrompt(index int) string {
	return fmt.Sprintf("Question %d/%d: %s", index+1, len(s.questions), s.questions[index].Text)
}

// empathyMessage picks the bot-voiced reaction shown before routing to the
// results view.
func empathyMessage(mood model.Mood) string {
	switch mood {
	case model.MoodDepressed, model.MoodHighlyDepressed:
		return "I can sense you're going through a tough time. Please know that you're not alone, and there are people who care about you deeply. Let me guide you to some activities that might help."
	case model.MoodStressed:
		return "It sounds like you have some things on your mind. That's completely normal. Let me show you your results and suggest some relaxing activities."
	default:
		return "Wonderful! You seem to be doing well today. Let's keep that positive energy going!"
	}
}

// pause waits for the pacing delay or context cancellation, whichever is
// first.
func (s *Sequencer) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Status returns the session status.
func (s *Sequencer) Status() Status {
	return s.status
}

// CurrentIndex returns the cursor position; it always equals the number of
// collected answers.
func (s *Sequencer) CurrentIndex() int {
	return s.current
}

// Questions returns a copy of the fetched question list.
func (s *Sequencer) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Answers returns a copy of the collected answers.
func (s *Sequencer) Answers() []string {
	out := make([]string, len(s.answers))
	copy(out, s.answers)
	return out
}

// Result returns the mood result once the session is complete, nil otherwise.
func (s *Sequencer) Result() *model.MoodResult {
	return s.result
}

// FailureMessage returns the user-facing message after a failed submission.
func (s *Sequencer) FailureMessage() string {
	return s.failure
}
