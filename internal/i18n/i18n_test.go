package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLang(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "ReportTitle"); got != "AI Interview Report" {
		t.Errorf("T(ReportTitle) = %q, want 'AI Interview Report'", got)
	}
	if got := T(ctx, "YourAnswer"); got != "Your Answer" {
		t.Errorf("T(YourAnswer) = %q, want 'Your Answer'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "ReportTitle"); got != "Отчёт об интервью" {
		t.Errorf("T(ReportTitle) = %q, want 'Отчёт об интервью'", got)
	}
	if got := T(ctx, "Candidate"); got != "Кандидат" {
		t.Errorf("T(Candidate) = %q, want 'Кандидат'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "AnswersRecorded", 1); got != "1 answer recorded." {
		t.Errorf("Tp(AnswersRecorded, 1) = %q", got)
	}
	if got := Tp(ctx, "AnswersRecorded", 5); got != "5 answers recorded." {
		t.Errorf("Tp(AnswersRecorded, 5) = %q", got)
	}
}

func TestPluralTranslationRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		n    int
		want string
	}{
		{1, "Записан 1 ответ."},
		{3, "Записано 3 ответа."},
		{5, "Записано 5 ответов."},
	}
	for _, tt := range tests {
		if got := Tp(ctx, "AnswersRecorded", tt.n); got != tt.want {
			t.Errorf("Tp(AnswersRecorded, %d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Td(ctx, "QuestionN", map[string]any{"ID": 3}); got != "Question 3" {
		t.Errorf("Td(QuestionN, ID=3) = %q, want 'Question 3'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	ctx := WithLang(context.Background(), "de")
	if got := T(ctx, "Candidate"); got != "Candidate" {
		t.Errorf("T(Candidate) for de = %q, want English fallback", got)
	}
}

func TestInitBadLanguage(t *testing.T) {
	if err := Init("not a tag!"); err == nil {
		t.Error("expected error for invalid tag")
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	var got string
	h := Middleware("en")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Candidate")
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "Candidate"},
		{"accept header", "/", "ru-RU,ru;q=0.9", "Кандидат"},
		{"query wins", "/?lang=en", "ru", "Candidate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	if got := Title("behavioral"); got != "Behavioral" {
		t.Errorf("Title = %q", got)
	}
	if len(Languages()) != 2 {
		t.Errorf("Languages = %v, want en and ru", Languages())
	}
}
