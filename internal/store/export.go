package store

import (
	"fmt"

	"github.com/pavelanni/recall/internal/model"
)

// ExportDocuments builds export-ready results for every document: its
// questions in order, each with its full answer history.
func (s *Store) ExportDocuments() ([]model.DocumentResult, error) {
	docs, err := s.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var results []model.DocumentResult
	for _, d := range docs {
		questions, err := s.ListQuestions(d.ID)
		if err != nil {
			return nil, fmt.Errorf("list questions for %s: %w", d.ID, err)
		}

		dr := model.DocumentResult{
			DocumentID: d.ID,
			Title:      d.Title,
			UploadedAt: d.UploadedAt,
		}
		for _, q := range questions {
			answers, err := s.ListAnswers(q.ID)
			if err != nil {
				return nil, fmt.Errorf("list answers for %s: %w", q.ID, err)
			}

			qr := model.QuestionResult{
				QuestionID:  q.ID,
				Text:        q.Text,
				Explanation: q.Explanation,
			}
			for _, a := range answers {
				qr.Answers = append(qr.Answers, model.ExportAnswer{
					Text: a.Text,
					Mark: a.Mark,
					At:   a.SubmittedAt,
				})
			}
			// Answers are newest first.
			if len(answers) > 0 {
				qr.LastMark = answers[0].Mark
				dr.Answered++
				if qr.LastMark != nil && *qr.LastMark > 0 {
					dr.Correct++
				}
			}
			dr.Questions = append(dr.Questions, qr)
		}
		results = append(results, dr)
	}

	return results, nil
}
