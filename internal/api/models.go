package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vhlong/readpulse-api/internal/domain"
)

// Wire DTOs for the HTTP surface. Handlers never serialize domain structs
// directly; the client-facing field names live here.

// GenerateQuizRequest defines the payload for the quiz generation endpoint.
type GenerateQuizRequest struct {
	TextID      string `json:"textId"      validate:"required,min=1"`
	TextContent string `json:"textContent" validate:"required,min=1"`
	// NumQuestions outside the supported range is clamped, not rejected.
	NumQuestions int `json:"n"`
}

// QuestionPayload is the wire form of one multiple-choice question.
type QuestionPayload struct {
	QID         string   `json:"qid"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizPayload is the wire form of a quiz: emitted by the generation
// endpoint and echoed back verbatim by grading clients.
type QuizPayload struct {
	QuizID      uuid.UUID         `json:"quizId"`
	TextID      string            `json:"textId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Questions   []QuestionPayload `json:"questions"`
}

// GenerateQuizResponse is a quiz plus the path that produced it: "llm" or
// "local".
type GenerateQuizResponse struct {
	QuizPayload
	Source string `json:"source"`
}

func quizToPayload(q *domain.Quiz) QuizPayload {
	questions := make([]QuestionPayload, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, QuestionPayload{
			QID:         question.QID,
			Type:        question.Type,
			Prompt:      question.Prompt,
			Options:     question.Options,
			Correct:     question.Correct,
			Explanation: question.Explanation,
		})
	}
	return QuizPayload{
		QuizID:      q.QuizID,
		TextID:      q.TextID,
		GeneratedAt: q.GeneratedAt,
		Questions:   questions,
	}
}

func (p QuizPayload) toDomain() domain.Quiz {
	questions := make([]domain.Question, 0, len(p.Questions))
	for _, question := range p.Questions {
		questions = append(questions, domain.Question{
			QID:         question.QID,
			Type:        question.Type,
			Prompt:      question.Prompt,
			Options:     question.Options,
			Correct:     question.Correct,
			Explanation: question.Explanation,
		})
	}
	return domain.Quiz{
		QuizID:      p.QuizID,
		TextID:      p.TextID,
		GeneratedAt: p.GeneratedAt,
		Questions:   questions,
	}
}

// AnswerPayload is one submitted answer, keyed to a question by QID.
type AnswerPayload struct {
	QID    string `json:"qid"    validate:"required,min=1"`
	Answer string `json:"answer"`
}

// GradeQuizRequest defines the payload for the quiz grading endpoint. The
// client echoes back the quiz it received so grading needs no server-side
// quiz storage.
type GradeQuizRequest struct {
	SessionID string          `json:"sessionId" validate:"required,min=1"`
	Quiz      QuizPayload     `json:"quiz"      validate:"required"`
	Answers   []AnswerPayload `json:"answers"   validate:"required,min=1,dive"`
	WPM       float64         `json:"wpm"       validate:"required,gt=0"`
}

func answersToDomain(answers []AnswerPayload) []domain.Answer {
	out := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		out = append(out, domain.Answer{QID: a.QID, Selected: a.Answer})
	}
	return out
}

// QuestionResultResponse is the per-question outcome of grading.
type QuestionResultResponse struct {
	QID         string `json:"qid"`
	UserAnswer  string `json:"userAnswer"`
	Correct     string `json:"correct"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// GradeQuizResponse defines the response for the quiz grading endpoint.
type GradeQuizResponse struct {
	SessionID            string                   `json:"sessionId"`
	CorrectCount         int                      `json:"correctCount"`
	TotalQuestions       int                      `json:"totalQuestions"`
	ComprehensionPercent float64                  `json:"comprehensionPercent"`
	WPM                  float64                  `json:"wpm"`
	REI                  float64                  `json:"rei"`
	PerQuestion          []QuestionResultResponse `json:"perQuestion"`
	Feedback             string                   `json:"feedback"`
}

func gradeToResponse(result *domain.GradeResult) GradeQuizResponse {
	perQuestion := make([]QuestionResultResponse, 0, len(result.PerQuestion))
	for _, q := range result.PerQuestion {
		perQuestion = append(perQuestion, QuestionResultResponse{
			QID:         q.QID,
			UserAnswer:  q.Selected,
			Correct:     q.Correct,
			IsCorrect:   q.IsCorrect,
			Explanation: q.Explanation,
		})
	}
	return GradeQuizResponse{
		SessionID:            result.SessionID,
		CorrectCount:         result.CorrectCount,
		TotalQuestions:       result.TotalQuestions,
		ComprehensionPercent: result.ComprehensionPercent,
		WPM:                  result.WPM,
		REI:                  result.REI,
		PerQuestion:          perQuestion,
		Feedback:             result.Feedback,
	}
}

// AnalyzeTextRequest defines the payload for the text analysis endpoint.
type AnalyzeTextRequest struct {
	TextID      string `json:"textId"      validate:"required,min=1"`
	TextContent string `json:"textContent" validate:"required,min=1"`
}

// TextStatsResponse is the structural profile of the analyzed text.
type TextStatsResponse struct {
	WordCount          int     `json:"wordCount"`
	SentenceCount      int     `json:"sentenceCount"`
	AvgSentenceLength  float64 `json:"avgSentenceLength"`
	AvgWordLength      float64 `json:"avgWordLength"`
	UniqueWordRatio    float64 `json:"uniqueWordRatio"`
	ReadingTimeMinutes float64 `json:"readingTimeMinutes"`
}

// AnalyzeTextResponse defines the response for the text analysis endpoint.
type AnalyzeTextResponse struct {
	TextID   string            `json:"textId"`
	Concepts []domain.Concept  `json:"concepts"`
	Stats    TextStatsResponse `json:"stats"`
	Summary  string            `json:"summary,omitempty"`
	Source   string            `json:"source"`
}

func analysisToResponse(textID string, stats *domain.TextStats, source string) AnalyzeTextResponse {
	concepts := stats.Concepts
	if concepts == nil {
		concepts = []domain.Concept{}
	}
	return AnalyzeTextResponse{
		TextID:   textID,
		Concepts: concepts,
		Stats: TextStatsResponse{
			WordCount:          stats.WordCount,
			SentenceCount:      stats.SentenceCount,
			AvgSentenceLength:  stats.AvgSentenceLength,
			AvgWordLength:      stats.AvgWordLength,
			UniqueWordRatio:    stats.UniqueWordRatio,
			ReadingTimeMinutes: stats.ReadingTimeMinutes,
		},
		Summary: stats.Summary,
		Source:  source,
	}
}

// SessionResponse represents one stored reading session.
type SessionResponse struct {
	SessionID            string    `json:"sessionId"`
	TextID               string    `json:"textId"`
	CorrectCount         int       `json:"correctCount"`
	TotalQuestions       int       `json:"totalQuestions"`
	ComprehensionPercent float64   `json:"comprehensionPercent"`
	WPM                  float64   `json:"wpm"`
	REI                  float64   `json:"rei"`
	Feedback             string    `json:"feedback"`
	CreatedAt            time.Time `json:"createdAt"`
}

// KeyStateResponse is the redacted health view of one credential.
type KeyStateResponse struct {
	ID            int        `json:"id"`
	Secret        string     `json:"secret"`
	RequestCount  int        `json:"requestCount"`
	ErrorCount    int        `json:"errorCount"`
	Active        bool       `json:"active"`
	QuotaExceeded bool       `json:"quotaExceeded"`
	QuotaResetAt  *time.Time `json:"quotaResetAt,omitempty"`
	LastUsedAt    *time.Time `json:"lastUsedAt,omitempty"`
}
