package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/store"
)

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	resp := model.DocumentsResponse{Documents: make([]model.DocumentListItem, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, model.DocumentListItem{
			DocumentID:     d.ID,
			Title:          d.Title,
			UploadedAt:     formatTime(d.UploadedAt),
			PageCount:      d.PageCount,
			QuestionsCount: d.QuestionsCount,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "documentID")
	if !ok {
		return
	}
	doc, err := h.store.GetDocument(id)
	if store.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "ErrDocumentNotFound")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	questions, err := h.store.ListQuestions(id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := model.DocumentDetail{
		DocumentID: doc.ID,
		Title:      doc.Title,
		UploadedAt: formatTime(doc.UploadedAt),
		PageCount:  doc.PageCount,
		Author:     doc.Author,
		Questions:  make([]model.DocumentQuestionRef, 0, len(questions)),
	}
	if doc.CreatedDate != nil {
		created := doc.CreatedDate.Format("2006-01-02")
		resp.CreatedDate = &created
	}
	for _, q := range questions {
		resp.Questions = append(resp.Questions, model.DocumentQuestionRef{
			QuestionID:   q.ID,
			QuestionText: q.Text,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleListDocumentQuestions reports each question's grading state. The
// explanation is withheld until the question has been answered.
func (h *Handler) handleListDocumentQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "documentID")
	if !ok {
		return
	}
	if _, err := h.store.GetDocument(id); err != nil {
		if store.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "ErrDocumentNotFound")
			return
		}
		h.internalError(w, r, err)
		return
	}
	statuses, err := h.store.ListQuestionStatus(id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := model.QuestionsResponse{Questions: make([]model.QuestionSummary, 0, len(statuses))}
	for _, qs := range statuses {
		s := model.QuestionSummary{
			QuestionID:   qs.Question.ID,
			QuestionText: qs.Question.Text,
		}
		if qs.Answered() {
			s.HasBeenAnswered = true
			s.LastMark = qs.Latest.Mark
			s.AnswerExplanation = qs.Question.Explanation
		}
		resp.Questions = append(resp.Questions, s)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "questionID")
	if !ok {
		return
	}
	q, err := h.store.GetQuestion(id)
	if store.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "ErrQuestionNotFound")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	doc, err := h.store.GetDocument(q.DocumentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	answers, err := h.store.ListAnswers(id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := model.QuestionDetail{
		QuestionID:        q.ID,
		DocumentID:        q.DocumentID,
		DocumentTitle:     doc.Title,
		QuestionText:      q.Text,
		AnswerExplanation: q.Explanation,
		UserAnswers:       make([]model.AnswerRecord, 0, len(answers)),
	}
	for _, a := range answers {
		resp.UserAnswers = append(resp.UserAnswers, model.AnswerRecord{
			AnswerID:    a.ID,
			UserAnswer:  a.Text,
			Mark:        a.Mark,
			SubmittedAt: formatTime(a.SubmittedAt),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleSubmitAnswer stores the answer, grades it synchronously and returns
// the mark. When grading fails the answer stays stored without a mark.
// Grading runs to completion even if the client disconnects.
func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "questionID")
	if !ok {
		return
	}
	q, err := h.store.GetQuestion(id)
	if store.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "ErrQuestionNotFound")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	var req model.SubmitAnswerRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		slog.Debug("invalid answer body", "question_id", id, "error", err)
		writeError(w, r, http.StatusBadRequest, "ErrInvalidBody")
		return
	}
	req.Answer = strings.TrimSpace(req.Answer)
	if err := h.validate.Struct(req); err != nil {
		slog.Debug("answer failed validation", "question_id", id, "error", err)
		writeError(w, r, http.StatusBadRequest, "ErrInvalidBody")
		return
	}

	answerID, err := h.store.AddAnswer(model.Answer{QuestionID: id, Text: req.Answer})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	// The answer is already stored, so a client that hangs up must not
	// leave it ungraded.
	gctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.config.GradeTimeout)
	defer cancel()
	result, err := h.grader.GradeAnswer(gctx, q, req.Answer)
	if err != nil {
		slog.Error("grading failed", "question_id", id, "answer_id", answerID, "error", err)
		writeError(w, r, http.StatusBadGateway, "ErrGradingFailed")
		return
	}
	mark := result.Mark()
	if err := h.store.SetAnswerMark(answerID, mark); err != nil {
		h.internalError(w, r, err)
		return
	}
	slog.Info("answer graded", "question_id", id, "answer_id", answerID, "mark", mark)

	w.Header().Set("Location", model.BasePathFromContext(r.Context())+"/api/answers/"+answerID+"/")
	writeJSON(w, r, http.StatusCreated, model.SubmitAnswerResponse{
		AnswerID:          answerID,
		QuestionID:        id,
		Mark:              &mark,
		AnswerExplanation: q.Explanation,
	})
}

func (h *Handler) handleGetAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "answerID")
	if !ok {
		return
	}
	a, err := h.store.GetAnswer(id)
	if store.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "ErrAnswerNotFound")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	q, err := h.store.GetQuestion(a.QuestionID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.AnswerDetail{
		AnswerID:          a.ID,
		QuestionID:        a.QuestionID,
		QuestionText:      q.Text,
		UserAnswer:        a.Text,
		Mark:              a.Mark,
		SubmittedAt:       formatTime(a.SubmittedAt),
		AnswerExplanation: q.Explanation,
	})
}
