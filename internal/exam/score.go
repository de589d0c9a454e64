package exam

// PenaltyPerIncorrect is the share of a correct answer each wrong answer
// cancels out.
const PenaltyPerIncorrect = 0.25

// Answers maps question ids to the option the candidate selected.
type Answers map[string]OptionKey

func (a Answers) clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Verdict classifies a single question after the exam.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictEmpty     Verdict = "empty"
)

// Result is the scored outcome over the questions loaded at finish.
type Result struct {
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Empty     int     `json:"empty"`
	Net       float64 `json:"net"`
}

// Total returns the number of scored questions.
func (r Result) Total() int {
	return r.Correct + r.Incorrect + r.Empty
}

// Classify decides the verdict for q given the candidate's answers.
func Classify(q Question, answers Answers) Verdict {
	selected, ok := answers[q.ID]
	switch {
	case !ok || selected == "":
		return VerdictEmpty
	case selected == q.CorrectAnswer:
		return VerdictCorrect
	default:
		return VerdictIncorrect
	}
}

// Score tallies answers against questions. Net is correct minus a quarter
// of incorrect and may be negative.
func Score(questions []Question, answers Answers) Result {
	var r Result
	for _, q := range questions {
		switch Classify(q, answers) {
		case VerdictCorrect:
			r.Correct++
		case VerdictIncorrect:
			r.Incorrect++
		default:
			r.Empty++
		}
	}
	r.Net = float64(r.Correct) - PenaltyPerIncorrect*float64(r.Incorrect)
	return r
}

// ReviewItem is one row of the post-exam review.
type ReviewItem struct {
	Number       int       `json:"number"`
	QuestionID   string    `json:"question_id"`
	Text         string    `json:"text"`
	Verdict      Verdict   `json:"verdict"`
	Selected     OptionKey `json:"selected,omitempty"`
	SelectedText string    `json:"selected_text,omitempty"`
	Correct      OptionKey `json:"correct"`
	CorrectText  string    `json:"correct_text"`
	Explanation  string    `json:"explanation"`
}

// Review lists every question with its verdict in exam order.
func Review(questions []Question, answers Answers) []ReviewItem {
	items := make([]ReviewItem, 0, len(questions))
	for i, q := range questions {
		item := ReviewItem{
			Number:      i + 1,
			QuestionID:  q.ID,
			Text:        q.Text,
			Verdict:     Classify(q, answers),
			Correct:     q.CorrectAnswer,
			CorrectText: q.Options[q.CorrectAnswer],
			Explanation: q.Explanation,
		}
		if sel, ok := answers[q.ID]; ok {
			item.Selected = sel
			item.SelectedText = q.Options[sel]
		}
		items = append(items, item)
	}
	return items
}
