package session

// Snapshot is a read-only copy of a session's state. Questions already
// reflect the grading policy, so static-mode questions carry the marks
// derived from the user's answers.
type Snapshot struct {
	DocumentID string
	Mode       Mode
	Status     Status
	Err        string
	Position   int
	Questions  []Question
	Answers    map[string]string

	policy GradingPolicy
}

// CurrentQuestion returns the question at Position, or false when no
// question is loaded.
func (s Snapshot) CurrentQuestion() (Question, bool) {
	if s.Position < 0 || s.Position >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Position], true
}

// AnsweredCount returns the number of questions with a recorded answer.
func (s Snapshot) AnsweredCount() int {
	return len(s.Answers)
}

// IsLast reports whether Position is the last question.
func (s Snapshot) IsLast() bool {
	return s.Position == len(s.Questions)-1
}

// Progress returns the position, total and answered counts of the snapshot.
func (s Snapshot) Progress() Progress {
	return Progress{
		Position: s.Position,
		Total:    len(s.Questions),
		Answered: s.AnsweredCount(),
	}
}

// Results builds one record per loaded question, in presentation order.
// Unanswered questions have an empty UserAnswer.
func (s Snapshot) Results() []Result {
	policy := s.policy
	if policy == nil {
		policy = RemoteMarkPolicy{}
	}
	results := make([]Result, 0, len(s.Questions))
	for _, q := range s.Questions {
		answer := s.Answers[q.ID]
		results = append(results, Result{
			ID:              q.ID,
			Prompt:          q.Prompt,
			UserAnswer:      answer,
			ReferenceAnswer: q.ReferenceAnswer,
			IsCorrect:       policy.IsCorrect(q, answer),
		})
	}
	return results
}

// Score returns the number of correct results and the total.
func (s Snapshot) Score() (correct, total int) {
	for _, r := range s.Results() {
		if r.IsCorrect {
			correct++
		}
	}
	return correct, len(s.Questions)
}
