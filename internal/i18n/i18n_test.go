package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Recall" {
		t.Errorf("T(AppTitle) = %q, want 'Recall'", got)
	}

	got = T(ctx, "ErrQuestionNotFound")
	if got != "Question not found." {
		t.Errorf("T(ErrQuestionNotFound) = %q, want 'Question not found.'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "AppTitle")
	if got != "Повторение" {
		t.Errorf("T(AppTitle) = %q, want 'Повторение'", got)
	}

	got = T(ctx, "ResultCorrect")
	if got != "верно" {
		t.Errorf("T(ResultCorrect) = %q, want 'верно'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "AnsweredCount", 1)
	if got1 != "1 question answered" {
		t.Errorf("Tp(AnsweredCount, 1) = %q, want '1 question answered'", got1)
	}

	got5 := Tp(ctx, "AnsweredCount", 5)
	if got5 != "5 questions answered" {
		t.Errorf("Tp(AnsweredCount, 5) = %q, want '5 questions answered'", got5)
	}
}

func TestPluralTranslationRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		count int
		want  string
	}{
		{1, "Отвечен 1 вопрос"},
		{3, "Отвечено 3 вопроса"},
		{5, "Отвечено 5 вопросов"},
		{21, "Отвечен 21 вопрос"},
	}
	for _, tt := range tests {
		if got := Tp(ctx, "AnsweredCount", tt.count); got != tt.want {
			t.Errorf("Tp(AnsweredCount, %d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "QuestionProgress", map[string]any{"Position": 2, "Total": 8})
	if got != "Question 2 of 8" {
		t.Errorf("Td(QuestionProgress) = %q, want 'Question 2 of 8'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	en := NewLocalizer("en")
	ru := NewLocalizer("ru")
	for _, id := range []string{"AppTitle", "ConsoleHelp", "ResultsScore", "ErrGradingFailed", "ErrInvalidBody"} {
		ctxEN := WithLocalizer(context.Background(), en)
		ctxRU := WithLocalizer(context.Background(), ru)
		if T(ctxEN, id) == T(ctxRU, id) {
			t.Errorf("message %s is not translated to Russian", id)
		}
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "AppTitle")
	}))

	tests := []struct {
		header string
		want   string
	}{
		{"", "Recall"},
		{"ru-RU,ru;q=0.9,en;q=0.8", "Повторение"},
		{"de-DE", "Recall"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Accept-Language", tt.header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("Accept-Language %q: AppTitle = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestInitRejectsMissingLocale(t *testing.T) {
	err := Init("de")
	if err == nil {
		t.Fatal("Init(de) succeeded without a German locale")
	}
	if !strings.Contains(err.Error(), "en, ru") {
		t.Errorf("error %q does not list the available locales", err)
	}
	if err := Init("ru-RU"); err != nil {
		t.Fatalf("Init(ru-RU): %v", err)
	}
}
