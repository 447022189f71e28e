package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/recall/internal/i18n"
	"github.com/pavelanni/recall/internal/llm"
	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/store"
)

// fakeGrader scores "right" as 1 and everything else as 0, or fails.
type fakeGrader struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (g *fakeGrader) GradeAnswer(_ context.Context, _ model.Question, answer string) (*llm.GradeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, answer)
	if g.fail {
		return nil, errors.New("llm unavailable")
	}
	if answer == "right" {
		return &llm.GradeResult{Score: 1, Feedback: "good"}, nil
	}
	return &llm.GradeResult{Score: 0, Feedback: "no"}, nil
}

type fixture struct {
	store  *store.Store
	grader *fakeGrader
	router http.Handler
	docID  string
	q1, q2 string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))

	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	docID, err := s.CreateDocument(model.Document{Title: "Physics", PageCount: 4})
	require.NoError(t, err)
	q1, err := s.InsertQuestion(model.Question{DocumentID: docID, Position: 0, Text: "What is force?", Explanation: "Mass times acceleration."})
	require.NoError(t, err)
	q2, err := s.InsertQuestion(model.Question{DocumentID: docID, Position: 1, Text: "What is work?", Explanation: "Force times distance."})
	require.NoError(t, err)

	g := &fakeGrader{}
	h, err := New(s, g, model.ServerConfig{BasePath: "/recall", Lang: "en"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	r.Use(h.BasePathMiddleware)
	h.Routes(r)

	return &fixture{store: s, grader: g, router: r, docID: docID, q1: q1, q2: q2}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/documents/", "/api/documents"} {
		rec := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		resp := decode[model.DocumentsResponse](t, rec)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, f.docID, resp.Documents[0].DocumentID)
		assert.Equal(t, "Physics", resp.Documents[0].Title)
		assert.Equal(t, 2, resp.Documents[0].QuestionsCount)
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/documents/"+f.docID+"/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[model.DocumentDetail](t, rec)
	assert.Equal(t, "Physics", doc.Title)
	assert.Nil(t, doc.CreatedDate)
	require.Len(t, doc.Questions, 2)
	assert.Equal(t, f.q1, doc.Questions[0].QuestionID)
}

func TestIDValidation(t *testing.T) {
	f := newFixture(t)
	const missing = "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"malformed document", http.MethodGet, "/api/documents/42/", "", http.StatusBadRequest, "Invalid identifier."},
		{"unknown document", http.MethodGet, "/api/documents/" + missing + "/", "", http.StatusNotFound, "Document not found."},
		{"unknown document questions", http.MethodGet, "/api/documents/" + missing + "/questions/", "", http.StatusNotFound, "Document not found."},
		{"malformed question", http.MethodGet, "/api/questions/abc/", "", http.StatusBadRequest, "Invalid identifier."},
		{"unknown question", http.MethodGet, "/api/questions/" + missing + "/", "", http.StatusNotFound, "Question not found."},
		{"answer unknown question", http.MethodPost, "/api/questions/" + missing + "/answer/", `{"answer":"x"}`, http.StatusNotFound, "Question not found."},
		{"unknown answer", http.MethodGet, "/api/answers/" + missing + "/", "", http.StatusNotFound, "Answer not found."},
		{"unknown route", http.MethodGet, "/api/nothing/", "", http.StatusNotFound, "Not found."},
		{"wrong method", http.MethodDelete, "/api/documents/", "", http.StatusMethodNotAllowed, "Method not allowed."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decode[model.ErrorResponse](t, rec).Error)
		})
	}
}

func TestQuestionsWithholdExplanationUntilAnswered(t *testing.T) {
	f := newFixture(t)
	path := "/api/documents/" + f.docID + "/questions/"

	resp := decode[model.QuestionsResponse](t, f.do(t, http.MethodGet, path, ""))
	require.Len(t, resp.Questions, 2)
	for _, q := range resp.Questions {
		assert.False(t, q.HasBeenAnswered)
		assert.Nil(t, q.LastMark)
		assert.Empty(t, q.AnswerExplanation)
	}

	rec := f.do(t, http.MethodPost, "/api/questions/"+f.q1+"/answer/", `{"answer":"right"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp = decode[model.QuestionsResponse](t, f.do(t, http.MethodGet, path, ""))
	first := resp.Questions[0]
	assert.Equal(t, f.q1, first.QuestionID)
	assert.True(t, first.HasBeenAnswered)
	require.NotNil(t, first.LastMark)
	assert.Equal(t, 100, *first.LastMark)
	assert.Equal(t, "Mass times acceleration.", first.AnswerExplanation)
	assert.False(t, resp.Questions[1].HasBeenAnswered)
}

func TestSubmitAnswer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/questions/"+f.q2+"/answer/", `{"answer":"  wrong  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[model.SubmitAnswerResponse](t, rec)
	assert.Equal(t, f.q2, resp.QuestionID)
	require.NotNil(t, resp.Mark)
	assert.Equal(t, 0, *resp.Mark)
	assert.Equal(t, "Force times distance.", resp.AnswerExplanation)
	assert.Equal(t, "/recall/api/answers/"+resp.AnswerID+"/", rec.Header().Get("Location"))
	assert.Equal(t, []string{"wrong"}, f.grader.calls)

	rec = f.do(t, http.MethodGet, "/api/answers/"+resp.AnswerID+"/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[model.AnswerDetail](t, rec)
	assert.Equal(t, "wrong", detail.UserAnswer)
	assert.Equal(t, "What is work?", detail.QuestionText)
	require.NotNil(t, detail.Mark)
	assert.Equal(t, 0, *detail.Mark)
}

func TestSubmitAnswerInvalidBody(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`not json`, `{}`, `{"answer":"   "}`, `{"answer":"` + strings.Repeat("a", 20001) + `"}`} {
		rec := f.do(t, http.MethodPost, "/api/questions/"+f.q1+"/answer/", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Empty(t, f.grader.calls)

	answers, err := f.store.ListAnswers(f.q1)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestSubmitAnswerGradingFailureKeepsAnswer(t *testing.T) {
	f := newFixture(t)
	f.grader.fail = true

	rec := f.do(t, http.MethodPost, "/api/questions/"+f.q1+"/answer/", `{"answer":"right"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "The answer was saved but could not be graded.", decode[model.ErrorResponse](t, rec).Error)

	resp := decode[model.QuestionsResponse](t, f.do(t, http.MethodGet, "/api/documents/"+f.docID+"/questions/", ""))
	assert.True(t, resp.Questions[0].HasBeenAnswered)
	assert.Nil(t, resp.Questions[0].LastMark, "answer stays ungraded")
}

func TestGetQuestionListsAnswersNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/questions/"+f.q1+"/answer/", `{"answer":"first"}`)
	f.do(t, http.MethodPost, "/api/questions/"+f.q1+"/answer/", `{"answer":"right"}`)

	rec := f.do(t, http.MethodGet, "/api/questions/"+f.q1+"/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[model.QuestionDetail](t, rec)
	assert.Equal(t, "Physics", q.DocumentTitle)
	require.Len(t, q.UserAnswers, 2)
	assert.Equal(t, "right", q.UserAnswers[0].UserAnswer)
	assert.Equal(t, "first", q.UserAnswers[1].UserAnswer)
}

func TestErrorsAreLocalized(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/questions/nope/", nil)
	req.Header.Set("Accept-Language", "ru")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Неверный идентификатор.", decode[model.ErrorResponse](t, rec).Error)
}

// blockingGrader holds each grading call until release is closed and fails
// if its context was cancelled by then.
type blockingGrader struct {
	started chan struct{}
	release chan struct{}
}

func (g *blockingGrader) GradeAnswer(ctx context.Context, _ model.Question, _ string) (*llm.GradeResult, error) {
	close(g.started)
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.GradeResult{Score: 1, Feedback: "good"}, nil
}

func TestSubmitAnswerSurvivesClientDisconnect(t *testing.T) {
	f := newFixture(t)
	g := &blockingGrader{started: make(chan struct{}), release: make(chan struct{})}
	h, err := New(f.store, g, model.ServerConfig{Lang: "en"})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/questions/"+f.q1+"/answer/", strings.NewReader(`{"answer":"right"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(rec, req)
	}()

	<-g.started
	cancel()
	close(g.release)
	<-done

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	answers, err := f.store.ListAnswers(f.q1)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Mark, "grade is stored after the client went away")
	assert.Equal(t, 100, *answers[0].Mark)
}
