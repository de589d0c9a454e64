package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

const maxSubjectRunes = 80

var controlRegex = regexp.MustCompile(`[\p{Cc}{}<>]`)

var (
	loadOnce      sync.Once
	loadErr       error
	systemPrompt  string
	batchTemplate *template.Template
)

// BatchData holds template data for a question batch prompt.
type BatchData struct {
	Subject     string
	Count       int
	BatchNumber int
	Target      int
}

func load() error {
	loadOnce.Do(func() {
		sys, err := templateFS.ReadFile("templates/system.txt")
		if err != nil {
			loadErr = fmt.Errorf("read system prompt: %w", err)
			return
		}
		systemPrompt = strings.TrimSpace(string(sys))

		content, err := templateFS.ReadFile("templates/exam_batch.txt")
		if err != nil {
			loadErr = fmt.Errorf("read batch prompt: %w", err)
			return
		}
		batchTemplate, err = template.New("exam_batch").Parse(string(content))
		if err != nil {
			loadErr = fmt.Errorf("parse batch prompt: %w", err)
		}
	})
	return loadErr
}

// System returns the system instruction shared by every provider.
func System() (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	return systemPrompt, nil
}

// BuildBatchPrompt renders the user prompt for one question batch.
func BuildBatchPrompt(data BatchData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	if data.Count <= 0 {
		return "", errors.New("question count must be positive")
	}

	data.Subject = sanitizeSubject(data.Subject)
	if data.Subject == "" {
		return "", errors.New("subject is empty")
	}
	if data.Target < data.Count {
		data.Target = data.Count
	}

	var buf bytes.Buffer
	if err := batchTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeSubject(subject string) string {
	subject = controlRegex.ReplaceAllString(subject, "")
	subject = strings.Join(strings.Fields(subject), " ")
	if utf8.RuneCountInString(subject) > maxSubjectRunes {
		subject = string([]rune(subject)[:maxSubjectRunes])
	}
	return subject
}
