package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/mockinterview/internal/i18n"
	"github.com/pavelanni/mockinterview/internal/interview"
	"github.com/pavelanni/mockinterview/internal/llm"
	"github.com/pavelanni/mockinterview/internal/llm/prompts"
	"github.com/pavelanni/mockinterview/internal/model"
	"github.com/pavelanni/mockinterview/internal/store"
)

const (
	questionsReply = `[{"id": 1, "question": "What is a goroutine?"}, {"id": 2, "question": "What is a channel?"}]`
	evalReply      = `{"scores": {"technical": 8, "communication": 6, "confidence": 7},
		"feedback": "Good.", "examples_or_corrections": "Mention the scheduler.",
		"resources": ["https://go.dev/tour"]}`
)

type testServer struct {
	srv     *httptest.Server
	backend *llm.MockBackend
}

func newTestServer(t *testing.T, serverKey string) *testServer {
	t.Helper()
	require.NoError(t, i18n.Init("en"))

	cfg := llm.DefaultConfig()
	pc := cfg.Providers[llm.ProviderGemini]
	pc.APIKey = serverKey
	cfg.Providers[llm.ProviderGemini] = pc

	backend := llm.NewMockBackend(llm.ProviderGemini)
	router := llm.NewRouter(cfg, backend)
	set, err := prompts.Default()
	require.NoError(t, err)

	appCfg := model.AppConfig{NumQuestions: 2, DefaultProvider: "gemini"}
	svc := interview.NewService(store.NewMemory(), interview.NewGenerator(router, set, prompts.PromptStandard), appCfg)
	h := New(svc, router, appCfg)
	h.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, backend: backend}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (ts *testServer) start(t *testing.T) string {
	t.Helper()
	ts.backend.AddResponse(llm.MockResponse{Text: questionsReply})
	resp, body := ts.do(t, http.MethodPost, "/interview/start", map[string]string{
		"name": "Ada", "role": "Go Developer", "experience": "mid", "mode": "technical",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out startResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.SessionID)
	require.Len(t, out.Questions, 2)
	return out.SessionID
}

func (ts *testServer) answer(t *testing.T, id string, qid int) *http.Response {
	t.Helper()
	ts.backend.AddResponse(llm.MockResponse{Text: evalReply})
	resp, _ := ts.do(t, http.MethodPost, "/interview/session/"+id+"/answer", map[string]any{
		"question_id": qid, "answer": "A lightweight thread.",
	})
	return resp
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out.Detail
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "server-key")
	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestProviders(t *testing.T) {
	ts := newTestServer(t, "server-key-secret")
	resp, body := ts.do(t, http.MethodGet, "/interview/providers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "server-key-secret")

	var out struct {
		DefaultProvider string             `json:"default_provider"`
		Providers       []llm.ProviderInfo `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "gemini", out.DefaultProvider)
	require.Len(t, out.Providers, 1)
	assert.Equal(t, llm.ProviderGemini, out.Providers[0].Name)
	assert.True(t, out.Providers[0].ServerKey)
}

func TestStartAndGetSession(t *testing.T) {
	ts := newTestServer(t, "server-key")
	id := ts.start(t)

	resp, body := ts.do(t, http.MethodGet, "/interview/session/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess model.Session
	require.NoError(t, json.Unmarshal(body, &sess))
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, model.StatusOngoing, sess.Status)
	assert.Equal(t, "gemini", sess.Meta.Provider)
	assert.False(t, sess.Meta.UsedUserKey)
}

func TestStartCallerKeyIsMaskedAndRouted(t *testing.T) {
	ts := newTestServer(t, "")
	ts.backend.AddResponse(llm.MockResponse{Text: questionsReply})
	resp, body := ts.do(t, http.MethodPost, "/interview/start", map[string]string{
		"role": "SRE", "experience": "senior", "mode": "behavioral",
		"model_provider": "Gemini", "provider": "openai", "api_key": "caller-key-123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, []string{"caller-key-123456"}, ts.backend.KeysUsed())

	var out startResponse
	require.NoError(t, json.Unmarshal(body, &out))
	_, body = ts.do(t, http.MethodGet, "/interview/session/"+out.SessionID, nil)
	assert.NotContains(t, string(body), "caller-key-123456")
	assert.Contains(t, string(body), `"masked_api_key":"call...3456"`)
}

func TestStartProviderError(t *testing.T) {
	ts := newTestServer(t, "")
	resp, body := ts.do(t, http.MethodPost, "/interview/start", map[string]string{
		"role": "SRE", "experience": "senior", "mode": "technical",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Detail providerErrorBody `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "gemini", out.Detail.Provider)
	assert.Equal(t, string(llm.KindMissingCredential), out.Detail.Kind)
	assert.False(t, out.Detail.UsedUserKey)
	assert.NotEmpty(t, out.Detail.Message)
	assert.Zero(t, ts.backend.CallCount())
}

func TestStartRejectedCallerKey(t *testing.T) {
	ts := newTestServer(t, "")
	ts.backend.AddResponse(llm.MockResponse{Err: errors.New("401 Unauthorized: invalid api key")})
	resp, body := ts.do(t, http.MethodPost, "/interview/start", map[string]string{
		"role": "SRE", "experience": "senior", "mode": "technical", "api_key": "bad-key-0000000",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out struct {
		Detail providerErrorBody `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, string(llm.KindCredential), out.Detail.Kind)
	assert.True(t, out.Detail.UsedUserKey)
	assert.False(t, out.Detail.FallbackTried)
}

func TestStartValidation(t *testing.T) {
	ts := newTestServer(t, "server-key")
	tests := []struct {
		name string
		body any
	}{
		{"missing role", map[string]string{"experience": "mid", "mode": "technical"}},
		{"unknown provider", map[string]string{"role": "r", "experience": "mid", "mode": "technical", "model_provider": "bard"}},
		{"not json", "plain string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/interview/start", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, detail(t, body))
		})
	}
	assert.Zero(t, ts.backend.CallCount())
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, "server-key")
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/interview/session/nope"},
		{http.MethodPost, "/interview/session/nope/finalize"},
		{http.MethodGet, "/interview/session/nope/report.html"},
		{http.MethodGet, "/interview/session/nope/export/full"},
	} {
		resp, body := ts.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
		assert.Equal(t, "Session not found", detail(t, body))
	}

	resp, _ := ts.do(t, http.MethodPost, "/interview/session/nope/answer", map[string]any{"question_id": 1, "answer": "a"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnswerFlow(t *testing.T) {
	ts := newTestServer(t, "server-key")
	id := ts.start(t)

	ts.backend.AddResponse(llm.MockResponse{Text: evalReply})
	resp, body := ts.do(t, http.MethodPost, "/interview/session/"+id+"/answer", map[string]any{
		"question_id": 2, "answer": "A typed conduit.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var ev model.Evaluation
	require.NoError(t, json.Unmarshal(body, &ev))
	assert.Equal(t, 2, ev.QuestionID)
	assert.Equal(t, model.Scores{Technical: 8, Communication: 6, Confidence: 7}, ev.Scores)
	assert.Equal(t, []string{"https://go.dev/tour"}, ev.Resources)
}

func TestAnswerErrors(t *testing.T) {
	ts := newTestServer(t, "server-key")
	id := ts.start(t)

	resp, body := ts.do(t, http.MethodPost, "/interview/session/"+id+"/answer", map[string]any{
		"question_id": 42, "answer": "a",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Question id not found in session", detail(t, body))

	resp, body = ts.do(t, http.MethodPost, "/interview/session/"+id+"/answer", map[string]any{"answer": "a"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "question_id is required", detail(t, body))

	ts.backend.AddResponse(llm.MockResponse{Err: errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")})
	resp, body = ts.do(t, http.MethodPost, "/interview/session/"+id+"/answer", map[string]any{
		"question_id": 1, "answer": "a",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), string(llm.KindQuota))

	_, body = ts.do(t, http.MethodGet, "/interview/session/"+id, nil)
	var sess model.Session
	require.NoError(t, json.Unmarshal(body, &sess))
	assert.Empty(t, sess.Answers)
}

func TestFinalizeAndExport(t *testing.T) {
	ts := newTestServer(t, "server-key")
	id := ts.start(t)

	resp, body := ts.do(t, http.MethodPost, "/interview/session/"+id+"/finalize", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No answers provided", detail(t, body))

	resp, body = ts.do(t, http.MethodGet, "/interview/session/"+id+"/export/full", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, detail(t, body), "not completed")

	require.Equal(t, http.StatusOK, ts.answer(t, id, 1).StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/interview/session/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rep model.Report
	require.NoError(t, json.Unmarshal(body, &rep))
	assert.Equal(t, 7.3, rep.OverallScore)
	assert.Equal(t, 1, rep.NQuestions)

	// A second finalize returns the stored report.
	resp, body2 := ts.do(t, http.MethodPost, "/interview/session/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, string(body), string(body2))

	assert.Equal(t, http.StatusConflict, ts.answer(t, id, 2).StatusCode)

	resp, pdf := ts.do(t, http.MethodGet, "/interview/session/"+id+"/export/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="interview_summary_Ada_20260501_120000.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	resp, body = ts.do(t, http.MethodGet, "/interview/session/"+id+"/export/full/base64", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var b64 struct {
		Filename    string `json:"filename"`
		PDFData     string `json:"pdf_data"`
		ContentType string `json:"content_type"`
	}
	require.NoError(t, json.Unmarshal(body, &b64))
	assert.Equal(t, "interview_report_Ada_20260501_120000.pdf", b64.Filename)
	assert.Equal(t, "application/pdf", b64.ContentType)
	raw, err := base64.StdEncoding.DecodeString(b64.PDFData)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	resp, body = ts.do(t, http.MethodGet, "/interview/session/"+id+"/export/poster", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, detail(t, body), "unknown export kind")
}

func TestReportHTMLLocalized(t *testing.T) {
	ts := newTestServer(t, "server-key")
	id := ts.start(t)
	require.Equal(t, http.StatusOK, ts.answer(t, id, 1).StatusCode)

	resp, body := ts.do(t, http.MethodGet, "/interview/session/"+id+"/report.html?lang=ru", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, string(body), "Отчёт об интервью")
	assert.Contains(t, string(body), "A lightweight thread.")
}
