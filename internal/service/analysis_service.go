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

// maxAnalysisConcepts bounds the concept list in either path.
const maxAnalysisConcepts = 8

// TextAnalysis pairs the structural profile of a text with where the
// concept extraction came from.
type TextAnalysis struct {
	Stats  *domain.TextStats `json:"stats"`
	Source string            `json:"source"`
}

// AnalysisService extracts key concepts and reading statistics from a text.
// The structural counts are always computed locally; the generator, when
// healthy, replaces the frequency-based concept list with semantic concepts
// and adds a one-line summary.
type AnalysisService struct {
	generator generation.TextGenerator
	logger    *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(generator generation.TextGenerator, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		generator: generator,
		logger:    logger.With(slog.String("component", "analysis_service")),
	}
}

const analysisPromptTemplate = `Phân tích bài đọc dưới đây. Trả về DUY NHẤT một đối tượng JSON theo cấu trúc:
{"concepts":[{"term":"...","weight":0.9}],"summary":"..."}

Yêu cầu:
- Tối đa %d khái niệm chính, "weight" trong khoảng (0, 1] thể hiện mức độ quan trọng.
- "summary" là một câu tóm tắt nội dung bằng tiếng Việt.

Bài đọc:
%s`

// AnalyzeText profiles the text. Remote failures and malformed model output
// degrade to the frequency-based local concepts, never to an error.
func (s *AnalysisService) AnalyzeText(ctx context.Context, text string) (*TextAnalysis, error) {
	stats, err := domain.ComputeTextStats(text, maxAnalysisConcepts)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, maxAnalysisConcepts, text)
	cfg := generation.DefaultConfig()
	cfg.Temperature = 0.3

	raw, err := s.generator.GenerateText(ctx, prompt, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("remote analysis failed, keeping local concepts",
			slog.String("error", err.Error()))
		return &TextAnalysis{Stats: stats, Source: SourceLocal}, nil
	}

	concepts, summary, err := parseAnalysis(raw)
	if err != nil {
		s.logger.Warn("remote analysis rejected, keeping local concepts",
			slog.String("reason", err.Error()))
		return &TextAnalysis{Stats: stats, Source: SourceLocal}, nil
	}

	stats.Concepts = concepts
	stats.Summary = summary
	return &TextAnalysis{Stats: stats, Source: SourceRemote}, nil
}

// parseAnalysis decodes and validates the model's concept payload.
func parseAnalysis(raw string) ([]domain.Concept, string, error) {
	block, ok := extractJSONBlock(raw)
	if !ok || !gjson.Valid(block) {
		return nil, "", errors.New("decode: no valid JSON object in model output")
	}

	var payload struct {
		Concepts []domain.Concept `json:"concepts"`
		Summary  string           `json:"summary"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, "", fmt.Errorf("decode: %w", err)
	}

	if len(payload.Concepts) == 0 {
		return nil, "", errors.New("validate: empty concept list")
	}
	if len(payload.Concepts) > maxAnalysisConcepts {
		payload.Concepts = payload.Concepts[:maxAnalysisConcepts]
	}
	for i, c := range payload.Concepts {
		if strings.TrimSpace(c.Term) == "" {
			return nil, "", fmt.Errorf("validate: concept %d has empty term", i+1)
		}
		if c.Weight <= 0 || c.Weight > 1 {
			return nil, "", fmt.Errorf("validate: concept %q weight %v out of (0, 1]", c.Term, c.Weight)
		}
	}
	return payload.Concepts, strings.TrimSpace(payload.Summary), nil
}
