package session

// GradingPolicy decides how grades are presented and what counts as correct.
type GradingPolicy interface {
	// View returns q as the presentation layer should see it, given the
	// user's answer (answered is false when there is none).
	View(q Question, answer string, answered bool) Question
	// IsCorrect reports whether answer counts as correct for q.
	IsCorrect(q Question, answer string) bool
}

// RemoteMarkPolicy trusts marks reported by a grading service: an answer is
// correct when it has been graded with a positive mark.
type RemoteMarkPolicy struct{}

func (RemoteMarkPolicy) View(q Question, _ string, _ bool) Question {
	return q
}

func (RemoteMarkPolicy) IsCorrect(q Question, _ string) bool {
	return q.Graded && q.Mark != nil && *q.Mark > 0
}

// ExactMatchPolicy grades locally by exact string equality with the
// reference answer. No normalization and no partial credit.
type ExactMatchPolicy struct{}

func (ExactMatchPolicy) View(q Question, answer string, answered bool) Question {
	if !answered {
		return q
	}
	mark := 0.0
	if answer == q.ReferenceAnswer {
		mark = 1
	}
	q.Graded = true
	q.Mark = &mark
	return q
}

func (ExactMatchPolicy) IsCorrect(q Question, answer string) bool {
	return answer == q.ReferenceAnswer
}
