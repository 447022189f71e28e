package model

import "time"

// RecallExport is the top-level JSON structure for answer export.
type RecallExport struct {
	ExportedAt    time.Time        `json:"exported_at"`
	PromptVariant string           `json:"prompt_variant"`
	Documents     []DocumentResult `json:"documents"`
}

// DocumentResult holds one document's questions and answers for export.
type DocumentResult struct {
	DocumentID string           `json:"document_id"`
	Title      string           `json:"title"`
	UploadedAt time.Time        `json:"uploaded_at"`
	Questions  []QuestionResult `json:"questions"`
	Answered   int              `json:"answered"`
	Correct    int              `json:"correct"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	QuestionID  string         `json:"question_id"`
	Text        string         `json:"text"`
	Explanation string         `json:"explanation"`
	Answers     []ExportAnswer `json:"answers"`
	LastMark    *int           `json:"last_mark"`
}

// ExportAnswer is a single submitted answer in an export.
type ExportAnswer struct {
	Text string    `json:"text"`
	Mark *int      `json:"mark"`
	At   time.Time `json:"at"`
}
