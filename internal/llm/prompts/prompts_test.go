package prompts

import (
	"strings"
	"testing"
)

func TestBuildBatchPrompt(t *testing.T) {
	t.Run("first batch", func(t *testing.T) {
		prompt, err := BuildBatchPrompt(BatchData{Subject: "Tarih", Count: 20, BatchNumber: 1, Target: 120})
		if err != nil {
			t.Fatalf("BuildBatchPrompt: %v", err)
		}
		for _, want := range []string{"Tarih", "20 adet", "120 soruluk", "1. paketi", `"questions"`} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt should contain %q", want)
			}
		}
		if strings.Contains(prompt, "Önceki paketlerdeki") {
			t.Error("first batch should not mention earlier batches")
		}
	})

	t.Run("later batch", func(t *testing.T) {
		prompt, err := BuildBatchPrompt(BatchData{Subject: "Coğrafya", Count: 20, BatchNumber: 3, Target: 120})
		if err != nil {
			t.Fatalf("BuildBatchPrompt: %v", err)
		}
		if !strings.Contains(prompt, "Önceki paketlerdeki") {
			t.Error("later batches should ask for new questions")
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		if _, err := BuildBatchPrompt(BatchData{Subject: "Tarih", Count: 0}); err == nil {
			t.Error("expected error for zero count")
		}
		if _, err := BuildBatchPrompt(BatchData{Subject: " {{ }} ", Count: 5}); err == nil {
			t.Error("expected error for empty subject")
		}
	})
}

func TestSanitizeSubject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Türkçe", "Türkçe"},
		{"whitespace", "  Genel   Kültür \n", "Genel Kültür"},
		{"template braces", "{{.Evil}}Tarih", ".EvilTarih"},
		{"tags", "<b>Matematik</b>", "bMatematik/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSubject(tt.input); got != tt.want {
				t.Errorf("sanitizeSubject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := strings.Repeat("ş", maxSubjectRunes+10)
	if got := sanitizeSubject(long); len([]rune(got)) != maxSubjectRunes {
		t.Errorf("long subject truncated to %d runes, want %d", len([]rune(got)), maxSubjectRunes)
	}
}

func TestSystem(t *testing.T) {
	sys, err := System()
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(sys, "KPSS") {
		t.Error("system prompt should mention KPSS")
	}
}
