package model

import (
	"context"
	"time"
)

// Document is a source document that questions were generated from.
type Document struct {
	ID          string     `json:"document_id"`
	Title       string     `json:"title"`
	FilePath    string     `json:"file_path,omitempty"`
	Content     string     `json:"-"`
	PageCount   int        `json:"page_count"`
	Author      string     `json:"author,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
}

// Question is an active recall question stored on the server.
type Question struct {
	ID          string    `json:"question_id"`
	DocumentID  string    `json:"document_id"`
	Position    int       `json:"position"`
	Text        string    `json:"question_text"`
	Explanation string    `json:"answer_explanation"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is a user's submitted answer to a question.
// Mark is nil until the answer has been graded.
type Answer struct {
	ID          string    `json:"answer_id"`
	QuestionID  string    `json:"question_id"`
	Text        string    `json:"user_answer"`
	Mark        *int      `json:"mark"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// QuestionStatus pairs a question with its most recent answer, if any.
type QuestionStatus struct {
	Question Question
	Latest   *Answer
}

// Answered reports whether the question has any submitted answer.
func (qs QuestionStatus) Answered() bool {
	return qs.Latest != nil
}

// DocumentSummary is a document together with its question count.
type DocumentSummary struct {
	Document
	QuestionsCount int
}

// ServerConfig holds runtime parameters for the recall API server.
type ServerConfig struct {
	BasePath      string        // URL prefix for sub-path deployments (e.g. "/recall")
	PromptVariant string        // Grading prompt variant (strict, standard, lenient)
	Lang          string        // Default language for error messages
	GradeTimeout  time.Duration // Bound on one grading call; zero uses the handler default
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
