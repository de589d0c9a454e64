package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("tr"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLanguage(context.Background(), lang)
}

func TestTranslateTurkish(t *testing.T) {
	ctx := initLang(t, "tr")

	if got := T(ctx, "AppTitle"); got != "KPSS Maraton" {
		t.Errorf("T(AppTitle) = %q, want 'KPSS Maraton'", got)
	}
	if got := T(ctx, "NextPending"); got != "Yükleniyor..." {
		t.Errorf("T(NextPending) = %q", got)
	}
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "KPSS Marathon" {
		t.Errorf("T(AppTitle) = %q, want 'KPSS Marathon'", got)
	}
}

func TestDefaultLanguageFallback(t *testing.T) {
	if err := Init("tr"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := T(context.Background(), "AppTitle"); got != "KPSS Maraton" {
		t.Errorf("T without localizer = %q, want Turkish fallback", got)
	}
	if got := Lang(context.Background()); got != "tr" {
		t.Errorf("Lang = %q, want tr", got)
	}
	if got := T(WithLanguage(context.Background(), "de"), "AppTitle"); got != "KPSS Maraton" {
		t.Errorf("T(de) = %q, want Turkish fallback", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsEvaluated", 1); got != "1 question loaded and evaluated." {
		t.Errorf("Tp(1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsEvaluated", 20); got != "20 questions loaded and evaluated." {
		t.Errorf("Tp(20) = %q", got)
	}

	trCtx := WithLanguage(context.Background(), "tr")
	if got := Tp(trCtx, "QuestionsEvaluated", 120); got != "120 soru yüklendi ve değerlendirildi." {
		t.Errorf("Tp(tr, 120) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "tr")

	got := Td(ctx, "LoadingFirstBatch", map[string]any{"Batch": 1, "Total": 6})
	if got != "İlk sorular hazırlanıyor (1/6)..." {
		t.Errorf("Td(LoadingFirstBatch) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestNegotiate(t *testing.T) {
	if err := Init("tr"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		header string
		want   string
	}{
		{"", "tr"},
		{"en-US,en;q=0.9", "en"},
		{"tr-TR", "tr"},
		{"de-DE", "tr"},
		{"de;q=0.9,en;q=0.5", "en"},
		{"???", "tr"},
	}
	for _, tt := range tests {
		if got := Negotiate(tt.header); got != tt.want {
			t.Errorf("Negotiate(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("tr"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(T(r.Context(), "AppTitle")))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "KPSS Marathon" || rec.Header().Get("Content-Language") != "en" {
		t.Errorf("got %q (%s)", rec.Body.String(), rec.Header().Get("Content-Language"))
	}

	req = httptest.NewRequest(http.MethodGet, "/?lang=tr", nil)
	req.Header.Set("Accept-Language", "en")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "KPSS Maraton" {
		t.Errorf("lang query should win, got %q", rec.Body.String())
	}
}
