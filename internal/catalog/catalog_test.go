package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	all := c.All()
	if len(all) != 5 {
		t.Fatalf("got %d exam types, want 5", len(all))
	}

	tests := []struct {
		id      string
		subject string
		minutes int
	}{
		{"turkce", "Türkçe", 130},
		{"matematik", "Matematik", 130},
		{"vatandaslik", "Vatandaşlık", 100},
		{"tarih", "Tarih", 100},
		{"cografya", "Coğrafya", 100},
	}
	for i, tt := range tests {
		et, ok := c.Lookup(tt.id)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.id)
		}
		if et.Subject != tt.subject || et.TimeMinutes != tt.minutes || et.QuestionCount != 120 {
			t.Errorf("Lookup(%q) = %+v", tt.id, et)
		}
		if all[i].ID != tt.id {
			t.Errorf("All()[%d].ID = %q, want %q", i, all[i].ID, tt.id)
		}
	}

	if et, _ := c.Lookup("tarih"); et.TimeLimitSeconds() != 6000 {
		t.Errorf("TimeLimitSeconds = %d, want 6000", et.TimeLimitSeconds())
	}
	if _, ok := c.Lookup("fizik"); ok {
		t.Error("Lookup of unknown id should fail")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Subject = "changed"
	if et, _ := c.Lookup(all[0].ID); et.Subject == "changed" {
		t.Error("All should not expose internal storage")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "exam_types: []", "no exam types"},
		{"missing id", "exam_types:\n  - subject: Tarih\n    time_minutes: 10", "id is required"},
		{"missing subject", "exam_types:\n  - id: x\n    time_minutes: 10", "subject is required"},
		{"bad time", "exam_types:\n  - id: x\n    subject: Tarih", "time_minutes"},
		{"duplicate", "exam_types:\n  - {id: x, subject: A, time_minutes: 1}\n  - {id: x, subject: B, time_minutes: 1}", "duplicate"},
		{"bad yaml", "exam_types: [", "parse catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("exam_types:\n  - {id: genel, subject: Genel Kültür, time_minutes: 45}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	et, _ := c.Lookup("genel")
	if et.QuestionCount != DefaultQuestionCount {
		t.Errorf("QuestionCount = %d, want %d", et.QuestionCount, DefaultQuestionCount)
	}
	if et.Title != "Genel Kültür" {
		t.Errorf("Title = %q, want subject fallback", et.Title)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("exam_types:\n  - {id: t, subject: Tarih, time_minutes: 5, question_count: 40}"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if et, ok := c.Lookup("t"); !ok || et.QuestionCount != 40 {
		t.Errorf("Lookup = %+v, %v", et, ok)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}
