package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vhlong/readpulse-api/internal/api/shared"
	"github.com/vhlong/readpulse-api/internal/service"
)

// ProxyHandler handles the reading-comprehension feature endpoints backed
// by the text-generation proxy: quiz generation, quiz grading, and text
// analysis.
type ProxyHandler struct {
	quizService     *service.QuizService
	gradeService    *service.GradeService
	analysisService *service.AnalysisService
	validator       *validator.Validate
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(
	quizService *service.QuizService,
	gradeService *service.GradeService,
	analysisService *service.AnalysisService,
) *ProxyHandler {
	return &ProxyHandler{
		quizService:     quizService,
		gradeService:    gradeService,
		analysisService: analysisService,
		validator:       validator.New(),
	}
}

// GenerateQuiz handles POST /api/proxy/generate-quiz requests
func (h *ProxyHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.quizService.GenerateQuiz(r.Context(), req.TextID, req.TextContent, req.NumQuestions)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateQuizResponse{
		QuizPayload: quizToPayload(result.Quiz),
		Source:      result.Source,
	})
}

// GradeQuiz handles POST /api/proxy/grade-quiz requests
func (h *ProxyHandler) GradeQuiz(w http.ResponseWriter, r *http.Request) {
	var req GradeQuizRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	quiz := req.Quiz.toDomain()
	if err := quiz.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.gradeService.GradeQuiz(r.Context(), req.SessionID, &quiz, answersToDomain(req.Answers), req.WPM)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, gradeToResponse(result))
}

// AnalyzeText handles POST /api/proxy/analyze-text requests
func (h *ProxyHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeTextRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.analysisService.AnalyzeText(r.Context(), req.TextContent)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, analysisToResponse(req.TextID, result.Stats, result.Source))
}
