package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhlong/readpulse-api/internal/generation"
	"github.com/vhlong/readpulse-api/internal/service"
)

// stubGenerator returns a fixed output, or an error when err is set.
type stubGenerator struct {
	output string
	err    error
}

func (g *stubGenerator) GenerateText(context.Context, string, generation.Config) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func newTestProxyHandler(gen generation.TextGenerator) *ProxyHandler {
	return NewProxyHandler(
		service.NewQuizService(gen, nil),
		service.NewGradeService(gen, nil, nil),
		service.NewAnalysisService(gen, nil),
	)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

const handlerText = `Cây xanh hấp thụ khí CO2 và tạo ra khí oxy. Rừng là lá phổi của trái đất. ` +
	`Con người cần bảo vệ rừng khỏi nạn chặt phá. Trồng cây là việc làm thiết thực.`

func TestGenerateQuizHandlerFallsBackToLocal(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{err: generation.ErrAllKeysExhausted})
	body, _ := json.Marshal(map[string]any{
		"textId":      "text-1",
		"textContent": handlerText,
		"n":           10,
	})

	rr := postJSON(t, handler.GenerateQuiz, "/api/proxy/generate-quiz", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp GenerateQuizResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "local", resp.Source)
	assert.Equal(t, "text-1", resp.TextID)
	assert.Len(t, resp.Questions, 10)
}

func TestGenerateQuizHandlerResponseShape(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{err: generation.ErrAllKeysExhausted})
	body, _ := json.Marshal(map[string]any{
		"textId":      "text-1",
		"textContent": handlerText,
		"n":           10,
	})

	rr := postJSON(t, handler.GenerateQuiz, "/api/proxy/generate-quiz", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The quiz fields sit at the top level of the response, not under a
	// wrapper object.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"quizId", "textId", "generatedAt", "questions", "source"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "quiz")

	var questions []QuestionPayload
	require.NoError(t, json.Unmarshal(raw["questions"], &questions))
	require.NotEmpty(t, questions)
	assert.Equal(t, "q1", questions[0].QID)
	assert.Equal(t, "mcq", questions[0].Type)
	assert.Len(t, questions[0].Options, 4)
}

func TestGenerateQuizHandlerRejectsBadInput(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{})

	cases := map[string]string{
		"malformed json":  `{"textId": `,
		"missing textId":  `{"textContent":"some text","n":10}`,
		"missing content": `{"textId":"text-1","n":10}`,
	}
	for name, body := range cases {
		rr := postJSON(t, handler.GenerateQuiz, "/api/proxy/generate-quiz", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func gradeRequestBody(t *testing.T, sessionID string, wpm float64) string {
	t.Helper()

	questions := make([]map[string]any, 10)
	answers := make([]map[string]any, 10)
	for i := range questions {
		qid := fmt.Sprintf("q%d", i+1)
		questions[i] = map[string]any{
			"qid":     qid,
			"type":    "mcq",
			"prompt":  "Câu hỏi?",
			"options": []string{"a", "b", "c", "d"},
			"correct": "A",
		}
		answers[i] = map[string]any{"qid": qid, "answer": "A"}
	}
	body, err := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"quiz": map[string]any{
			"textId":    "text-1",
			"questions": questions,
		},
		"answers": answers,
		"wpm":     wpm,
	})
	require.NoError(t, err)
	return string(body)
}

func TestGradeQuizHandlerGradesWithRemoteDown(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{err: generation.ErrAllKeysExhausted})

	rr := postJSON(t, handler.GradeQuiz, "/api/proxy/grade-quiz", gradeRequestBody(t, "sess-1", 200))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp GradeQuizResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 10, resp.CorrectCount)
	assert.InDelta(t, 100.0, resp.ComprehensionPercent, 0.001)
	assert.InDelta(t, 200.0, resp.REI, 0.001)
	assert.True(t, strings.HasPrefix(resp.Feedback, "Xuất sắc!"))

	require.Len(t, resp.PerQuestion, 10)
	assert.Contains(t, rr.Body.String(), `"userAnswer"`)
	assert.Equal(t, "A", resp.PerQuestion[0].UserAnswer)
	assert.True(t, resp.PerQuestion[0].IsCorrect)
}

func TestGradeQuizHandlerRejectsBadInput(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{})

	cases := map[string]string{
		"malformed json": `{`,
		"missing quiz":   `{"sessionId":"s","answers":[{"qid":"q1","answer":"A"}],"wpm":200}`,
		"zero wpm":       gradeRequestBody(t, "sess-1", 0),
		"invalid quiz":   `{"sessionId":"s","quiz":{"textId":"t","questions":[{"qid":"q1","prompt":"p","options":["a"],"correct":"A"}]},"answers":[{"qid":"q1","answer":"A"}],"wpm":200}`,
	}
	for name, body := range cases {
		rr := postJSON(t, handler.GradeQuiz, "/api/proxy/grade-quiz", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func TestAnalyzeTextHandler(t *testing.T) {
	t.Parallel()

	payload := `{"concepts":[{"term":"rừng","weight":1.0}],"summary":"Bài viết về bảo vệ rừng."}`
	handler := newTestProxyHandler(&stubGenerator{output: payload})
	body, _ := json.Marshal(map[string]any{"textId": "text-1", "textContent": handlerText})

	rr := postJSON(t, handler.AnalyzeText, "/api/proxy/analyze-text", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp AnalyzeTextResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "llm", resp.Source)
	assert.Equal(t, "text-1", resp.TextID)
	require.Len(t, resp.Concepts, 1)
	assert.Equal(t, "rừng", resp.Concepts[0].Term)
	assert.Equal(t, 4, resp.Stats.SentenceCount)
	assert.Greater(t, resp.Stats.WordCount, 0)
	assert.Greater(t, resp.Stats.AvgWordLength, 0.0)
	assert.GreaterOrEqual(t, resp.Stats.ReadingTimeMinutes, 0.0)
}

func TestAnalyzeTextHandlerRejectsBadInput(t *testing.T) {
	t.Parallel()

	handler := newTestProxyHandler(&stubGenerator{})

	cases := map[string]string{
		"empty content":  `{"textId":"text-1","textContent":""}`,
		"missing textId": `{"textContent":"some text"}`,
	}
	for name, body := range cases {
		rr := postJSON(t, handler.AnalyzeText, "/api/proxy/analyze-text", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}
