package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/silvercare/companion/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	questions []model.Question
	err       error
}

func (s *stubSource) DailyQuestions(context.Context) ([]model.Question, error) {
	return s.questions, s.err
}

type stubAnalyzer struct {
	result *model.MoodResult
	err    error
	calls  int
	batch  []model.QuestionAnswer
}

func (s *stubAnalyzer) Analyze(_ context.Context, answers []model.QuestionAnswer) (*model.MoodResult, error) {
	s.calls++
	s.batch = answers
	return s.result, s.err
}

type stubRecorder struct {
	recorded []time.Time
}

func (s *stubRecorder) SetLastCheckIn(t time.Time) error {
	s.recorded = append(s.recorded, t)
	return nil
}

func normalResult() *model.MoodResult {
	return &model.MoodResult{
		Mood:             model.MoodNormal,
		Confidence:       model.ConfidenceHigh,
		EmotionsDetected: []string{"contentment"},
		Reason:           "Responses are upbeat.",
		AnalysisSource:   model.AnalysisSourceAI,
	}
}

func newTestSequencer(source QuestionSource, analyzer Analyzer, recorder Recorder) *Sequencer {
	return NewSequencer(source, analyzer, recorder, Pacing{}, zap.NewNop())
}

func TestSequencer_Start_FallbackOnFetchFailure(t *testing.T) {
	seq := newTestSequencer(&stubSource{err: errors.New("connection refused")}, &stubAnalyzer{}, &stubRecorder{})

	greeting, prompt := seq.Start(context.Background())

	require.Len(t, seq.Questions(), 5)
	assert.Contains(t, greeting, "5 simple questions")
	assert.Equal(t, "Question 1/5: How are you feeling today?", prompt)
	assert.Equal(t, StatusCollecting, seq.Status())
}

func TestSequencer_Start_FallbackOnEmptyList(t *testing.T) {
	seq := newTestSequencer(&stubSource{questions: []model.Question{}}, &stubAnalyzer{}, &stubRecorder{})

	seq.Start(context.Background())

	require.Len(t, seq.Questions(), 5)
}

func TestSequencer_Start_UsesFetchedQuestions(t *testing.T) {
	fetched := []model.Question{
		{Text: "Did you take a walk?", Category: "physical"},
		{Text: "Did you call anyone today?", Category: "social"},
	}
	seq := newTestSequencer(&stubSource{questions: fetched}, &stubAnalyzer{}, &stubRecorder{})

	_, prompt := seq.Start(context.Background())

	assert.Equal(t, "Question 1/2: Did you take a walk?", prompt)
	assert.Equal(t, fetched, seq.Questions())
}

func TestSequencer_SubmitAnswer_RejectsBlankText(t *testing.T) {
	seq := newTestSequencer(&stubSource{err: errors.New("offline")}, &stubAnalyzer{}, &stubRecorder{})
	seq.Start(context.Background())

	assert.Nil(t, seq.SubmitAnswer(context.Background(), ""))
	assert.Nil(t, seq.SubmitAnswer(context.Background(), "   "))
	assert.Equal(t, 0, seq.CurrentIndex())
	assert.Empty(t, seq.Answers())
}

func TestSequencer_SubmitAnswer_AdvancesCursorInLockstep(t *testing.T) {
	analyzer := &stubAnalyzer{result: normalResult()}
	seq := newTestSequencer(&stubSource{err: errors.New("offline")}, analyzer, &stubRecorder{})
	seq.Start(context.Background())

	for i := 1; i <= 4; i++ {
		turn := seq.SubmitAnswer(context.Background(), fmt.Sprintf("answer %d", i))
		require.NotNil(t, turn)
		assert.False(t, turn.Done)
		assert.True(t, strings.HasPrefix(turn.Prompt, fmt.Sprintf("Question %d/5:", i+1)), turn.Prompt)
		assert.Equal(t, i, seq.CurrentIndex())
		assert.Len(t, seq.Answers(), i)
		assert.Equal(t, 0, analyzer.calls)
	}
}

func TestSequencer_FinalAnswerTriggersSubmissionExactlyOnce(t *testing.T) {
	analyzer := &stubAnalyzer{result: normalResult()}
	recorder := &stubRecorder{}
	seq := newTestSequencer(&stubSource{err: errors.New("offline")}, analyzer, recorder)
	seq.Start(context.Background())

	answers := []string{"fine", "fine", "fine", "fine", "fine"}
	var last *Turn
	for _, a := range answers {
		last = seq.SubmitAnswer(context.Background(), a)
	}

	require.NotNil(t, last)
	assert.True(t, last.Done)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, StatusComplete, seq.Status())
	assert.Equal(t, model.MoodNormal, last.Result.Mood)
	require.Len(t, recorder.recorded, 1)

	// The batch pairs questions and answers positionally.
	require.Len(t, analyzer.batch, 5)
	assert.Equal(t, "How are you feeling today?", analyzer.batch[0].Question)
	assert.Equal(t, "emotional", analyzer.batch[0].Category)
	assert.Equal(t, "fine", analyzer.batch[0].Answer)
}

func TestSequencer_SubmitAnswer_NoOpAfterTerminalStatus(t *testing.T) {
	analyzer := &stubAnalyzer{result: normalResult()}
	seq := newTestSequencer(&stubSource{err: errors.New("offline")}, analyzer, &stubRecorder{})
	seq.Start(context.Background())

	for i := 0; i < 5; i++ {
		seq.SubmitAnswer(context.Background(), "fine")
	}
	require.Equal(t, StatusComplete, seq.Status())

	assert.Nil(t, seq.SubmitAnswer(context.Background(), "one more"))
	assert.Equal(t, 5, seq.CurrentIndex())
	assert.Equal(t, 1, analyzer.calls)
}

func TestSequencer_AnalysisFailureStillRecordsCheckIn(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("analysis service unavailable")}
	recorder := &stubRecorder{}
	seq := newTestSequencer(&stubSource{err: errors.New("offline")}, analyzer, recorder)
	seq.Start(context.Background())

	var last *Turn
	for i := 0; i < 5; i++ {
		last = seq.SubmitAnswer(context.Background(), "fine")
	}

	require.NotNil(t, last)
	assert.True(t, last.Done)
	assert.Nil(t, last.Result)
	assert.Contains(t, last.Message, "recorded")
	assert.Equal(t, StatusFailed, seq.Status())
	assert.Len(t, seq.Answers(), 5)

	// The answers are not silently lost: completion is still recorded.
	require.Len(t, recorder.recorded, 1)
}

func TestSequencer_EmpathyMessageByMoodBand(t *testing.T) {
	cases := []struct {
		mood     model.Mood
		contains string
	}{
		{model.MoodNormal, "doing well"},
		{model.MoodStressed, "on your mind"},
		{model.MoodDepressed, "not alone"},
		{model.MoodHighlyDepressed, "not alone"},
	}

	for _, tc := range cases {
		t.Run(string(tc.mood), func(t *testing.T) {
			assert.Contains(t, empathyMessage(tc.mood), tc.contains)
		})
	}
}

func TestSequencer_PacingRespectsCancelledContext(t *testing.T) {
	seq := NewSequencer(&stubSource{err: errors.New("offline")}, &stubAnalyzer{result: normalResult()}, &stubRecorder{},
		Pacing{GreetingDelay: time.Hour, QuestionDelay: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		seq.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return promptly with a cancelled context")
	}
}
