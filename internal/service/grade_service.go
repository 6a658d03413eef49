package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/generation"
	"github.com/vhlong/readpulse-api/internal/store"
)

// GradeService scores submitted quiz answers. Scores are always computed
// locally, so identical input yields an identical result no matter what the
// remote path is doing; the generator is only consulted to enrich the
// feedback prose, and the local feedback stands when that fails.
type GradeService struct {
	generator generation.TextGenerator
	sessions  store.ReadingSessionStore
	logger    *slog.Logger
}

// NewGradeService creates a GradeService. sessions may be nil when
// persistence is not configured.
func NewGradeService(generator generation.TextGenerator, sessions store.ReadingSessionStore, logger *slog.Logger) *GradeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeService{
		generator: generator,
		sessions:  sessions,
		logger:    logger.With(slog.String("component", "grade_service")),
	}
}

const feedbackPromptTemplate = `Một học viên vừa hoàn thành bài kiểm tra đọc hiểu với kết quả:
- Số câu đúng: %d/%d
- Tỷ lệ hiểu bài: %.1f%%
- Tốc độ đọc: %.0f từ/phút

Hãy viết 2-3 câu nhận xét thân thiện bằng tiếng Việt về kết quả này, kèm một gợi ý cụ thể để cải thiện. Trả về duy nhất phần nhận xét, không kèm tiêu đề hay định dạng.`

// GradeQuiz grades the session and, when possible, upgrades the summary
// feedback with generated prose. The graded result is persisted when a
// session store is configured; persistence failures are logged, never
// surfaced, because the grade itself is already complete.
func (s *GradeService) GradeQuiz(ctx context.Context, sessionID string, quiz *domain.Quiz, answers []domain.Answer, wpm float64) (*domain.GradeResult, error) {
	result, err := domain.Grade(sessionID, quiz, answers, wpm)
	if err != nil {
		return nil, err
	}

	if feedback := s.enrichFeedback(ctx, result); feedback != "" {
		result.Feedback = feedback
	}

	if s.sessions != nil {
		if err := s.persist(ctx, quiz.TextID, result); err != nil {
			s.logger.Warn("session persistence failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// enrichFeedback asks the generator for richer feedback prose. Returns the
// empty string on any failure so the caller keeps the local summary.
func (s *GradeService) enrichFeedback(ctx context.Context, result *domain.GradeResult) string {
	prompt := feedbackPrompt(result)
	cfg := generation.DefaultConfig()
	cfg.MaxOutputTokens = 512

	text, err := s.generator.GenerateText(ctx, prompt, cfg)
	if err != nil {
		s.logger.Info("feedback enrichment unavailable, keeping local summary",
			slog.String("session_id", result.SessionID),
			slog.String("error", err.Error()))
		return ""
	}

	text = strings.TrimSpace(text)
	if text == "" || len([]rune(text)) > 1000 {
		return ""
	}
	return text
}

func (s *GradeService) persist(ctx context.Context, textID string, result *domain.GradeResult) error {
	session, err := domain.NewReadingSession(textID, result)
	if err != nil {
		return err
	}
	return s.sessions.Create(ctx, session)
}

func feedbackPrompt(result *domain.GradeResult) string {
	return fmt.Sprintf(feedbackPromptTemplate,
		result.CorrectCount, result.TotalQuestions, result.ComprehensionPercent, result.WPM)
}
