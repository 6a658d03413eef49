package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/generation"
)

// Question count bounds for a generated quiz; requests outside the range
// are clamped, not rejected.
const (
	MinQuestions = 10
	MaxQuestions = 15
)

// Result sources reported alongside each feature response.
const (
	SourceRemote = "llm"
	SourceLocal  = "local"
)

// GeneratedQuiz pairs a quiz with where it came from.
type GeneratedQuiz struct {
	Quiz   *domain.Quiz `json:"quiz"`
	Source string       `json:"source"`
}

// QuizService generates comprehension quizzes for reading texts: through
// the text generator when the remote path is healthy, through the
// deterministic local builder otherwise. It never returns an error for a
// remote failure; the local fallback absorbs those.
type QuizService struct {
	generator generation.TextGenerator
	logger    *slog.Logger
}

// NewQuizService creates a QuizService.
func NewQuizService(generator generation.TextGenerator, logger *slog.Logger) *QuizService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizService{
		generator: generator,
		logger:    logger.With(slog.String("component", "quiz_service")),
	}
}

const quizPromptTemplate = `Bạn là một giáo viên luyện đọc hiểu. Dựa trên bài đọc dưới đây, hãy tạo đúng %d câu hỏi trắc nghiệm kiểm tra mức độ hiểu bài.

Trả về DUY NHẤT một đối tượng JSON theo đúng cấu trúc sau, không kèm lời dẫn hay giải thích nào khác:
{"questions":[{"prompt":"...","options":["...","...","...","..."],"correct":"A","explanation":"..."}]}

Yêu cầu:
- Mỗi câu hỏi có đúng 4 lựa chọn.
- "correct" là một chữ cái A, B, C hoặc D.
- Câu hỏi bám sát nội dung bài đọc, không hỏi kiến thức bên ngoài.

Bài đọc:
%s`

// GenerateQuiz produces a quiz of n questions for the text. n is clamped
// into [MinQuestions, MaxQuestions]. The remote result is accepted only
// when it decodes cleanly and passes business validation; anything short of
// that falls back to the local builder.
func (s *QuizService) GenerateQuiz(ctx context.Context, textID, textContent string, n int) (*GeneratedQuiz, error) {
	if strings.TrimSpace(textContent) == "" {
		return nil, domain.ErrAnalysisTextEmpty
	}
	if strings.TrimSpace(textID) == "" {
		return nil, domain.ErrQuizTextIDEmpty
	}
	n = clampQuestions(n)

	prompt := fmt.Sprintf(quizPromptTemplate, n, textContent)
	raw, err := s.generator.GenerateText(ctx, prompt, generation.DefaultConfig())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("remote quiz generation failed, using local builder",
			slog.String("text_id", textID),
			slog.String("error", err.Error()))
		return s.localQuiz(textID, textContent, n)
	}

	quiz, err := s.parseQuiz(textID, raw, n)
	if err != nil {
		s.logger.Warn("remote quiz rejected, using local builder",
			slog.String("text_id", textID),
			slog.String("reason", err.Error()))
		return s.localQuiz(textID, textContent, n)
	}

	return &GeneratedQuiz{Quiz: quiz, Source: SourceRemote}, nil
}

// parseQuiz applies the two-step acceptance check to the model output:
// first a strict decode of the extracted JSON block, then business
// validation of the decoded quiz. The two failure modes are logged apart
// because they point at different problems (prompt drift vs model quality).
func (s *QuizService) parseQuiz(textID, raw string, want int) (*domain.Quiz, error) {
	block, ok := extractJSONBlock(raw)
	if !ok || !gjson.Valid(block) {
		return nil, errors.New("decode: no valid JSON object in model output")
	}

	var payload struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if len(payload.Questions) < want {
		return nil, fmt.Errorf("validate: got %d questions, want %d", len(payload.Questions), want)
	}
	payload.Questions = payload.Questions[:want]

	quiz, err := domain.NewQuiz(textID, payload.Questions)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return quiz, nil
}

// localQuiz builds a quiz from the text itself with no randomness: the same
// text and n always produce the same questions. Questions ask which
// statement appears in the text, with the correct sentence placed at a
// position derived from the question index.
func (s *QuizService) localQuiz(textID, textContent string, n int) (*GeneratedQuiz, error) {
	sentences := domain.SplitSentences(textContent)
	if len(sentences) == 0 {
		return nil, domain.ErrAnalysisTextEmpty
	}

	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		correct := snippet(sentences[i%len(sentences)])
		options := localOptions(sentences, i, correct)
		letter := string(rune('A' + i%domain.QuestionOptionCount))

		questions = append(questions, domain.Question{
			Type:        "mcq",
			Prompt:      fmt.Sprintf("Câu %d: Câu nào sau đây xuất hiện trong bài đọc?", i+1),
			Options:     options,
			Correct:     letter,
			Explanation: "Câu này được trích trực tiếp từ bài đọc.",
		})
	}

	quiz, err := domain.NewQuiz(textID, questions)
	if err != nil {
		return nil, err
	}
	return &GeneratedQuiz{Quiz: quiz, Source: SourceLocal}, nil
}

// Fixed distractors used when the text has too few sentences to supply
// four distinct options.
var paddingDistractors = []string{
	"Bài đọc không đề cập đến nội dung này",
	"Thông tin này trái ngược với bài đọc",
	"Chi tiết này thuộc về một bài đọc khác",
}

// localOptions assembles the four options for question i: the correct
// sentence at position i mod 4, neighbouring sentences as distractors,
// fixed padding when the text runs short.
func localOptions(sentences []string, i int, correct string) []string {
	distractors := make([]string, 0, domain.QuestionOptionCount-1)
	for step := 1; step < len(sentences) && len(distractors) < domain.QuestionOptionCount-1; step++ {
		cand := snippet(sentences[(i+step)%len(sentences)])
		if cand != correct {
			distractors = append(distractors, cand)
		}
	}
	for p := 0; len(distractors) < domain.QuestionOptionCount-1; p++ {
		distractors = append(distractors, paddingDistractors[p%len(paddingDistractors)])
	}

	options := make([]string, domain.QuestionOptionCount)
	correctAt := i % domain.QuestionOptionCount
	d := 0
	for pos := range options {
		if pos == correctAt {
			options[pos] = correct
			continue
		}
		options[pos] = distractors[d]
		d++
	}
	return options
}

// snippet bounds an option's length so quiz payloads stay readable.
func snippet(sentence string) string {
	const maxRunes = 120
	runes := []rune(strings.TrimSpace(sentence))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes]) + "…"
}

func clampQuestions(n int) int {
	if n < MinQuestions {
		return MinQuestions
	}
	if n > MaxQuestions {
		return MaxQuestions
	}
	return n
}

// extractJSONBlock returns the outermost {...} block of the text, tolerating
// prose around it.
func extractJSONBlock(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
