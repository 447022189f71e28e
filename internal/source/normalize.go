package source

import (
	"errors"
	"fmt"

	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/session"
)

// normalizeQuestion maps one wire entry onto the session's question shape.
// A question counts as graded once the server reports a mark for it.
func normalizeQuestion(w model.QuestionSummary) (session.Question, error) {
	if w.QuestionID == "" {
		return session.Question{}, errors.New("question without question_id")
	}
	if w.QuestionText == "" {
		return session.Question{}, fmt.Errorf("question %s without question_text", w.QuestionID)
	}
	q := session.Question{
		ID:              w.QuestionID,
		Prompt:          w.QuestionText,
		ReferenceAnswer: w.AnswerExplanation,
	}
	if w.LastMark != nil {
		m := float64(*w.LastMark)
		q.Graded = true
		q.Mark = &m
	}
	return q, nil
}

func normalizeQuestions(ws []model.QuestionSummary) ([]session.Question, error) {
	out := make([]session.Question, 0, len(ws))
	for _, w := range ws {
		q, err := normalizeQuestion(w)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func normalizeGrade(w model.SubmitAnswerResponse) (session.Grade, error) {
	if w.Mark == nil {
		return session.Grade{}, fmt.Errorf("answer %s returned without mark", w.AnswerID)
	}
	return session.Grade{
		Mark:            float64(*w.Mark),
		ReferenceAnswer: w.AnswerExplanation,
	}, nil
}
