package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/recall/internal/model"
)

// ImportBank stores a bank file as one document with its questions in file
// order and records hash under key, all in one transaction. It returns the
// new document ID.
func (s *Store) ImportBank(key, hash string, f model.BankFile) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	docID := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO documents (id, title, file_path, page_count, author, uploaded_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		docID, f.Title, key, f.Author, now,
	); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	for i, bq := range f.Questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (id, document_id, position, text, explanation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), docID, i, bq.Question, bq.ReferenceExplanation(), now,
		); err != nil {
			return "", fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO exam_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		importHashPrefix+key, hash,
	); err != nil {
		return "", fmt.Errorf("record import hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return docID, nil
}
