package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/generation"
	"github.com/vhlong/readpulse-api/internal/store"
)

// fakeSessionStore records created sessions in memory. createErr, when set,
// makes Create fail.
type fakeSessionStore struct {
	mu        sync.Mutex
	created   []*domain.ReadingSession
	createErr error
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.ReadingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, session)
	return nil
}

func (f *fakeSessionStore) GetBySessionID(_ context.Context, sessionID string) (*domain.ReadingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.created {
		if s.SessionID == sessionID {
			return s, nil
		}
	}
	return nil, store.ErrSessionNotFound
}

func (f *fakeSessionStore) ListRecent(_ context.Context, limit int) ([]*domain.ReadingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.created) {
		limit = len(f.created)
	}
	out := make([]*domain.ReadingSession, 0, limit)
	for i := len(f.created) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.created[i])
	}
	return out, nil
}

func gradedQuiz(t *testing.T, n int) *domain.Quiz {
	t.Helper()
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			Prompt:  "Câu hỏi?",
			Options: []string{"a", "b", "c", "d"},
			Correct: "A",
		}
	}
	quiz, err := domain.NewQuiz("text-1", questions)
	require.NoError(t, err)
	return quiz
}

func correctAnswers(quiz *domain.Quiz, n int) []domain.Answer {
	answers := make([]domain.Answer, 0, n)
	for i := 0; i < n; i++ {
		answers = append(answers, domain.Answer{QID: quiz.Questions[i].QID, Selected: quiz.Questions[i].Correct})
	}
	return answers
}

func TestGradeQuizScoresLocally(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	answers := correctAnswers(quiz, 8)

	gen := &fakeGenerator{err: generation.ErrAllKeysExhausted}
	svc := NewGradeService(gen, nil, nil)

	result, err := svc.GradeQuiz(context.Background(), "sess-1", quiz, answers, 200)
	require.NoError(t, err)

	assert.Equal(t, 8, result.CorrectCount)
	assert.Equal(t, 10, result.TotalQuestions)
	assert.InDelta(t, 80.0, result.ComprehensionPercent, 0.001)
	assert.InDelta(t, 160.0, result.REI, 0.001)
	assert.True(t, strings.HasPrefix(result.Feedback, "Tốt!"))
}

func TestGradeQuizScoresIdenticalWhetherRemoteWorks(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	answers := correctAnswers(quiz, 7)

	healthy := NewGradeService(&fakeGenerator{outputs: []string{"Nhận xét từ mô hình."}}, nil, nil)
	broken := NewGradeService(&fakeGenerator{err: generation.ErrAllKeysExhausted}, nil, nil)

	got, err := healthy.GradeQuiz(context.Background(), "sess-1", quiz, answers, 180)
	require.NoError(t, err)
	want, err := broken.GradeQuiz(context.Background(), "sess-1", quiz, answers, 180)
	require.NoError(t, err)

	assert.Equal(t, want.CorrectCount, got.CorrectCount)
	assert.Equal(t, want.TotalQuestions, got.TotalQuestions)
	assert.Equal(t, want.ComprehensionPercent, got.ComprehensionPercent)
	assert.Equal(t, want.REI, got.REI)
	assert.Equal(t, want.PerQuestion, got.PerQuestion)
	assert.NotEqual(t, want.Feedback, got.Feedback, "only the feedback prose may differ")
}

func TestGradeQuizEnrichesFeedback(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	gen := &fakeGenerator{outputs: []string{"  Bạn đọc rất tốt, hãy thử các bài khó hơn.  "}}
	svc := NewGradeService(gen, nil, nil)

	result, err := svc.GradeQuiz(context.Background(), "sess-1", quiz, correctAnswers(quiz, 10), 200)
	require.NoError(t, err)

	assert.Equal(t, "Bạn đọc rất tốt, hãy thử các bài khó hơn.", result.Feedback)
	assert.Equal(t, 1, gen.calls)
}

func TestGradeQuizRejectsDegenerateFeedback(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)

	for name, output := range map[string]string{
		"empty":      "   ",
		"over limit": strings.Repeat("ă", 1001),
	} {
		gen := &fakeGenerator{outputs: []string{output}}
		svc := NewGradeService(gen, nil, nil)

		result, err := svc.GradeQuiz(context.Background(), "sess-1", quiz, correctAnswers(quiz, 10), 200)
		require.NoError(t, err, name)
		assert.Equal(t, domain.FeedbackFor(result.ComprehensionPercent), result.Feedback, name)
	}
}

func TestGradeQuizPersistsSession(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	sessions := &fakeSessionStore{}
	svc := NewGradeService(&fakeGenerator{err: generation.ErrAllKeysExhausted}, sessions, nil)

	result, err := svc.GradeQuiz(context.Background(), "sess-1", quiz, correctAnswers(quiz, 9), 150)
	require.NoError(t, err)

	require.Len(t, sessions.created, 1)
	saved := sessions.created[0]
	assert.Equal(t, "sess-1", saved.SessionID)
	assert.Equal(t, "text-1", saved.TextID)
	assert.Equal(t, result.CorrectCount, saved.CorrectCount)
	assert.Equal(t, result.Feedback, saved.Feedback)
	assert.NotEmpty(t, saved.PerQuestion)
}

func TestGradeQuizPersistenceFailureNotSurfaced(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	sessions := &fakeSessionStore{createErr: errors.New("connection refused")}
	svc := NewGradeService(&fakeGenerator{err: generation.ErrAllKeysExhausted}, sessions, nil)

	result, err := svc.GradeQuiz(context.Background(), "sess-1", quiz, correctAnswers(quiz, 5), 150)
	require.NoError(t, err, "a failed write must not fail the grade")
	assert.Equal(t, 5, result.CorrectCount)
}

func TestGradeQuizValidatesInput(t *testing.T) {
	t.Parallel()

	quiz := gradedQuiz(t, 10)
	svc := NewGradeService(&fakeGenerator{}, nil, nil)

	_, err := svc.GradeQuiz(context.Background(), "", quiz, correctAnswers(quiz, 1), 150)
	assert.ErrorIs(t, err, domain.ErrGradeSessionIDEmpty)

	_, err = svc.GradeQuiz(context.Background(), "sess-1", quiz, nil, 150)
	assert.ErrorIs(t, err, domain.ErrGradeNoAnswers)

	_, err = svc.GradeQuiz(context.Background(), "sess-1", quiz, correctAnswers(quiz, 1), 0)
	assert.ErrorIs(t, err, domain.ErrGradeWPMInvalid)
}
