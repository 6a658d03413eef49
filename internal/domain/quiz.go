package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Quiz-specific validation errors
var (
	// ErrQuizTextIDEmpty is returned when a quiz's source text ID is empty.
	ErrQuizTextIDEmpty = errors.New("quiz text ID cannot be empty")

	// ErrQuizNoQuestions is returned when a quiz has no questions.
	ErrQuizNoQuestions = errors.New("quiz must contain at least one question")

	// ErrQuestionPromptEmpty is returned when a question's prompt is empty.
	ErrQuestionPromptEmpty = errors.New("question prompt cannot be empty")

	// ErrQuestionOptionCount is returned when a question does not have
	// exactly four options.
	ErrQuestionOptionCount = errors.New("question must have exactly 4 options")

	// ErrQuestionCorrectInvalid is returned when a question's correct answer
	// is not one of the letters A through D.
	ErrQuestionCorrectInvalid = errors.New("question correct answer must be one of A, B, C, D")
)

// QuestionOptionCount is the fixed number of options per multiple-choice
// question.
const QuestionOptionCount = 4

// Question is one multiple-choice item in a quiz. Correct holds the letter
// of the right option, A through D, matching the Options slice by position.
type Question struct {
	QID         string   `json:"qid"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Validate checks the structural invariants of a single question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return ErrQuestionPromptEmpty
	}
	if len(q.Options) != QuestionOptionCount {
		return fmt.Errorf("%w: got %d", ErrQuestionOptionCount, len(q.Options))
	}
	if !ValidChoiceLetter(q.Correct) {
		return fmt.Errorf("%w: got %q", ErrQuestionCorrectInvalid, q.Correct)
	}
	return nil
}

// Quiz is a set of comprehension questions generated for one reading text.
type Quiz struct {
	QuizID      uuid.UUID  `json:"quiz_id"`
	TextID      string     `json:"text_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Questions   []Question `json:"questions"`
}

// NewQuiz creates a Quiz over the given questions, assigning a fresh ID and
// generation timestamp. Question QIDs are normalized to their 1-based
// position ("q1", "q2", ...) and each question's Type defaults to "mcq".
// Returns an error if validation fails.
func NewQuiz(textID string, questions []Question) (*Quiz, error) {
	quiz := &Quiz{
		QuizID:      uuid.New(),
		TextID:      textID,
		GeneratedAt: time.Now().UTC(),
		Questions:   questions,
	}
	for i := range quiz.Questions {
		quiz.Questions[i].QID = fmt.Sprintf("q%d", i+1)
		if quiz.Questions[i].Type == "" {
			quiz.Questions[i].Type = "mcq"
		}
		quiz.Questions[i].Correct = strings.ToUpper(strings.TrimSpace(quiz.Questions[i].Correct))
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Validate checks that the quiz and every question in it are well-formed.
func (q *Quiz) Validate() error {
	if strings.TrimSpace(q.TextID) == "" {
		return ErrQuizTextIDEmpty
	}
	if len(q.Questions) == 0 {
		return ErrQuizNoQuestions
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidChoiceLetter reports whether s is a single letter A-D, ignoring case
// and surrounding whitespace.
func ValidChoiceLetter(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s == "A" || s == "B" || s == "C" || s == "D"
}
