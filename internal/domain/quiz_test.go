package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func validQuestions(n int) []Question {
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = Question{
			Prompt:  "What does the text say?",
			Options: []string{"a", "b", "c", "d"},
			Correct: "A",
		}
	}
	return questions
}

func TestNewQuiz(t *testing.T) {
	t.Parallel()

	quiz, err := NewQuiz("text-7", validQuestions(3))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if quiz.QuizID == uuid.Nil {
		t.Error("Expected non-nil quiz ID")
	}
	if quiz.TextID != "text-7" {
		t.Errorf("Expected text ID text-7, got %s", quiz.TextID)
	}
	if quiz.GeneratedAt.IsZero() {
		t.Error("Expected non-zero GeneratedAt")
	}

	// QIDs normalized to position, type defaulted.
	for i, q := range quiz.Questions {
		wantQID := "q" + string(rune('1'+i))
		if q.QID != wantQID {
			t.Errorf("Expected QID %s, got %s", wantQID, q.QID)
		}
		if q.Type != "mcq" {
			t.Errorf("Expected type mcq, got %s", q.Type)
		}
	}
}

func TestNewQuizNormalizesCorrectLetter(t *testing.T) {
	t.Parallel()

	questions := validQuestions(1)
	questions[0].Correct = " b "

	quiz, err := NewQuiz("text-1", questions)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if quiz.Questions[0].Correct != "B" {
		t.Errorf("Expected normalized correct letter B, got %q", quiz.Questions[0].Correct)
	}
}

func TestNewQuizValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewQuiz("", validQuestions(1)); !errors.Is(err, ErrQuizTextIDEmpty) {
		t.Errorf("Expected ErrQuizTextIDEmpty, got %v", err)
	}
	if _, err := NewQuiz("text-1", nil); !errors.Is(err, ErrQuizNoQuestions) {
		t.Errorf("Expected ErrQuizNoQuestions, got %v", err)
	}

	bad := validQuestions(1)
	bad[0].Options = []string{"a", "b"}
	if _, err := NewQuiz("text-1", bad); !errors.Is(err, ErrQuestionOptionCount) {
		t.Errorf("Expected ErrQuestionOptionCount, got %v", err)
	}

	bad = validQuestions(1)
	bad[0].Correct = "E"
	if _, err := NewQuiz("text-1", bad); !errors.Is(err, ErrQuestionCorrectInvalid) {
		t.Errorf("Expected ErrQuestionCorrectInvalid, got %v", err)
	}

	bad = validQuestions(1)
	bad[0].Prompt = "   "
	if _, err := NewQuiz("text-1", bad); !errors.Is(err, ErrQuestionPromptEmpty) {
		t.Errorf("Expected ErrQuestionPromptEmpty, got %v", err)
	}
}

func TestValidChoiceLetter(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"A", "b", " C ", "d"} {
		if !ValidChoiceLetter(s) {
			t.Errorf("Expected %q to be a valid choice letter", s)
		}
	}
	for _, s := range []string{"", "E", "AB", "1"} {
		if ValidChoiceLetter(s) {
			t.Errorf("Expected %q to be invalid", s)
		}
	}
}
