// Package exam runs KPSS practice exams: fetching generated question
// batches, streaming them into a session, and scoring the result.
package exam

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/kpssprep/marathon/internal/llm"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OptionKey is one of the five answer letters.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
	OptionE OptionKey = "E"
)

// OptionKeys lists the answer letters in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD, OptionE}

// Valid reports whether k is one of A..E.
func (k OptionKey) Valid() bool {
	for _, o := range OptionKeys {
		if k == o {
			return true
		}
	}
	return false
}

// ParseOptionKey accepts an answer letter in either case.
func ParseOptionKey(s string) (OptionKey, error) {
	k := OptionKey(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOption, s)
	}
	return k, nil
}

// Question is a multiple-choice exam question with five options.
type Question struct {
	ID            string               `json:"id"`
	Subject       string               `json:"subject"`
	Text          string               `json:"text"`
	Options       map[OptionKey]string `json:"options"`
	CorrectAnswer OptionKey            `json:"correct_answer"`
	Explanation   string               `json:"explanation"`
}

// Validate checks the five-option invariant.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %s: empty text", q.ID)
	}
	if len(q.Options) != len(OptionKeys) {
		return fmt.Errorf("question %s: expected %d options, got %d", q.ID, len(OptionKeys), len(q.Options))
	}
	for _, k := range OptionKeys {
		if _, ok := q.Options[k]; !ok {
			return fmt.Errorf("question %s: missing option %s", q.ID, k)
		}
	}
	if _, ok := q.Options[q.CorrectAnswer]; !ok {
		return fmt.Errorf("question %s: correct answer %q is not an option", q.ID, q.CorrectAnswer)
	}
	return nil
}

func newQuestion(subject string, g llm.Question) (Question, error) {
	q := Question{
		Subject:       subject,
		Text:          strings.TrimSpace(g.Text),
		Options:       make(map[OptionKey]string, len(g.Options)),
		CorrectAnswer: OptionKey(strings.ToUpper(strings.TrimSpace(g.CorrectAnswer))),
		Explanation:   strings.TrimSpace(g.Explanation),
	}
	for k, v := range g.Options {
		q.Options[OptionKey(strings.ToUpper(strings.TrimSpace(k)))] = strings.TrimSpace(v)
	}
	q.ID = questionID(subject, q.Text, q.Options)
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// questionID derives a stable id from the subject and the question content,
// so a question regenerated verbatim in a later batch collides with the
// first copy.
func questionID(subject, text string, options map[OptionKey]string) string {
	h, _ := blake2b.New(12, nil)
	h.Write([]byte(normalizeText(text)))
	for _, k := range OptionKeys {
		h.Write([]byte{0, byte(k[0])})
		h.Write([]byte(normalizeText(options[k])))
	}
	return "exam_" + subjectSlug(subject) + "_" + hex.EncodeToString(h.Sum(nil))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Turkish).String(s)), " ")
}

// subjectSlug folds a Turkish subject name to ASCII, e.g. "Coğrafya" -> "cografya".
func subjectSlug(subject string) string {
	lower := cases.Lower(language.Turkish).String(subject)
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, lower)
	if err != nil {
		folded = lower
	}
	folded = strings.ReplaceAll(folded, "ı", "i")

	var sb strings.Builder
	dash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "genel"
	}
	return slug
}
