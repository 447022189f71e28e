package model

// Wire types for the recall HTTP API. Field names follow the API's
// snake_case schema; clients normalize them at their load boundary.

// QuestionSummary is one entry of a document's question list.
// AnswerExplanation is only populated once the question has been answered.
type QuestionSummary struct {
	QuestionID        string `json:"question_id"`
	QuestionText      string `json:"question_text"`
	HasBeenAnswered   bool   `json:"has_been_answered"`
	LastMark          *int   `json:"last_mark"`
	AnswerExplanation string `json:"answer_explanation,omitempty"`
}

// QuestionsResponse is returned by GET /documents/{id}/questions/.
type QuestionsResponse struct {
	Questions []QuestionSummary `json:"questions"`
}

// SubmitAnswerRequest is the body of POST /questions/{id}/answer/.
type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=20000"`
}

// SubmitAnswerResponse is returned after an answer has been graded.
type SubmitAnswerResponse struct {
	AnswerID          string `json:"answer_id"`
	QuestionID        string `json:"question_id"`
	Mark              *int   `json:"mark"`
	AnswerExplanation string `json:"answer_explanation,omitempty"`
}

// DocumentListItem is one entry of GET /documents/.
type DocumentListItem struct {
	DocumentID     string `json:"document_id"`
	Title          string `json:"title"`
	UploadedAt     string `json:"uploaded_at"`
	PageCount      int    `json:"page_count"`
	QuestionsCount int    `json:"questions_count"`
}

// DocumentsResponse is returned by GET /documents/.
type DocumentsResponse struct {
	Documents []DocumentListItem `json:"documents"`
}

// DocumentQuestionRef is a short question reference inside a document detail.
type DocumentQuestionRef struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
}

// DocumentDetail is returned by GET /documents/{id}/.
type DocumentDetail struct {
	DocumentID  string                `json:"document_id"`
	Title       string                `json:"title"`
	UploadedAt  string                `json:"uploaded_at"`
	PageCount   int                   `json:"page_count"`
	Author      string                `json:"author,omitempty"`
	CreatedDate *string               `json:"created_date"`
	Questions   []DocumentQuestionRef `json:"questions"`
}

// AnswerRecord is a stored answer as listed under a question.
type AnswerRecord struct {
	AnswerID    string `json:"answer_id"`
	UserAnswer  string `json:"user_answer"`
	Mark        *int   `json:"mark"`
	SubmittedAt string `json:"submitted_at"`
}

// QuestionDetail is returned by GET /questions/{id}/.
type QuestionDetail struct {
	QuestionID        string         `json:"question_id"`
	DocumentID        string         `json:"document_id"`
	DocumentTitle     string         `json:"document_title"`
	QuestionText      string         `json:"question_text"`
	AnswerExplanation string         `json:"answer_explanation"`
	UserAnswers       []AnswerRecord `json:"user_answers"`
}

// AnswerDetail is returned by GET /answers/{id}/.
type AnswerDetail struct {
	AnswerID          string `json:"answer_id"`
	QuestionID        string `json:"question_id"`
	QuestionText      string `json:"question_text"`
	UserAnswer        string `json:"user_answer"`
	Mark              *int   `json:"mark"`
	SubmittedAt       string `json:"submitted_at"`
	AnswerExplanation string `json:"answer_explanation"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
