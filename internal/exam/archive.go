package exam

import "github.com/kpssprep/marathon/internal/model"

// Attempt converts the outcome into its archived form.
func (o Outcome) Attempt() model.Attempt {
	a := model.Attempt{
		ID:         o.ID,
		ExamTypeID: o.ExamType.ID,
		ExamTitle:  o.ExamType.Title,
		Subject:    o.ExamType.Subject,
		Target:     o.Target,
		Loaded:     len(o.Questions),
		Correct:    o.Score.Correct,
		Incorrect:  o.Score.Incorrect,
		Empty:      o.Score.Empty,
		Net:        o.Score.Net,
		Reason:     string(o.Reason),
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
		Questions:  make([]model.AttemptQuestion, 0, len(o.Questions)),
	}
	for i, q := range o.Questions {
		options := make(map[string]string, len(q.Options))
		for k, v := range q.Options {
			options[string(k)] = v
		}
		a.Questions = append(a.Questions, model.AttemptQuestion{
			Position:      i + 1,
			QuestionID:    q.ID,
			Text:          q.Text,
			Options:       options,
			CorrectAnswer: string(q.CorrectAnswer),
			Selected:      string(o.Answers[q.ID]),
			Verdict:       model.Verdict(Classify(q, o.Answers)),
			Explanation:   q.Explanation,
		})
	}
	return a
}
