package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Grading-specific validation errors
var (
	// ErrGradeSessionIDEmpty is returned when grading input has no session ID.
	ErrGradeSessionIDEmpty = errors.New("grade session ID cannot be empty")

	// ErrGradeNoAnswers is returned when grading input has no answer set.
	ErrGradeNoAnswers = errors.New("grade input must contain answers")

	// ErrGradeWPMInvalid is returned when the reading speed is not positive.
	ErrGradeWPMInvalid = errors.New("grade wpm must be positive")
)

// Answer is one submitted answer, keyed to a question by QID.
type Answer struct {
	QID      string `json:"qid"`
	Selected string `json:"selected"`
}

// QuestionResult is the per-question outcome of grading.
type QuestionResult struct {
	QID         string `json:"qid"`
	Selected    string `json:"selected"`
	Correct     string `json:"correct"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// GradeResult is the full outcome of grading one reading session: the raw
// counts, the derived comprehension percentage, the reading efficiency
// index, and the summary feedback.
type GradeResult struct {
	SessionID            string           `json:"session_id"`
	CorrectCount         int              `json:"correct_count"`
	TotalQuestions       int              `json:"total_questions"`
	ComprehensionPercent float64          `json:"comprehension_percent"`
	WPM                  float64          `json:"wpm"`
	REI                  float64          `json:"rei"`
	PerQuestion          []QuestionResult `json:"per_question"`
	Feedback             string           `json:"feedback"`
}

// Grade scores the submitted answers against the quiz. Scoring is fully
// deterministic: answer letters are compared case-insensitively, the
// comprehension percentage is correct/total*100 rounded to one decimal, and
// the reading efficiency index is wpm * percent / 100 rounded to one
// decimal. An unanswered question counts as incorrect. Feedback is filled
// with the local summary; callers may replace it with richer prose.
func Grade(sessionID string, quiz *Quiz, answers []Answer, wpm float64) (*GradeResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrGradeSessionIDEmpty
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, ErrQuizNoQuestions
	}
	if len(answers) == 0 {
		return nil, ErrGradeNoAnswers
	}
	if wpm <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrGradeWPMInvalid, wpm)
	}

	selected := make(map[string]string, len(answers))
	for _, a := range answers {
		selected[a.QID] = a.Selected
	}

	result := &GradeResult{
		SessionID:      sessionID,
		TotalQuestions: len(quiz.Questions),
		WPM:            wpm,
		PerQuestion:    make([]QuestionResult, 0, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		chosen := selected[q.QID]
		ok := chosen != "" && strings.EqualFold(strings.TrimSpace(chosen), q.Correct)
		if ok {
			result.CorrectCount++
		}
		result.PerQuestion = append(result.PerQuestion, QuestionResult{
			QID:         q.QID,
			Selected:    chosen,
			Correct:     q.Correct,
			IsCorrect:   ok,
			Explanation: q.Explanation,
		})
	}

	result.ComprehensionPercent = round1(float64(result.CorrectCount) / float64(result.TotalQuestions) * 100)
	result.REI = round1(wpm * result.ComprehensionPercent / 100)
	result.Feedback = FeedbackFor(result.ComprehensionPercent)

	return result, nil
}

// FeedbackFor returns the summary feedback line for a comprehension
// percentage. The thresholds and wording are fixed so repeat grading of the
// same session always yields the same text.
func FeedbackFor(percent float64) string {
	switch {
	case percent >= 90:
		return "Xuất sắc! Bạn đã nắm vững nội dung bài đọc."
	case percent >= 75:
		return "Tốt! Bạn hiểu phần lớn nội dung, hãy chú ý thêm các chi tiết nhỏ."
	case percent >= 60:
		return "Khá! Bạn nắm được ý chính nhưng nên đọc kỹ hơn để hiểu sâu."
	default:
		return "Cần cố gắng! Hãy đọc chậm lại và tập trung vào các ý chính của bài."
	}
}

// round1 rounds to one decimal place, half away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
