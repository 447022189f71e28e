package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pavelanni/recall/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// In-memory databases are per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		file_path TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0,
		author TEXT NOT NULL DEFAULT '',
		created_date DATETIME,
		uploaded_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS user_answers (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		text TEXT NOT NULL,
		mark INTEGER,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_user_answers_question ON user_answers(question_id);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateDocument stores a document and returns its generated ID.
func (s *Store) CreateDocument(d model.Document) (string, error) {
	id := uuid.NewString()
	uploaded := d.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO documents (id, title, file_path, content, page_count, author, created_date, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, d.Title, d.FilePath, d.Content, d.PageCount, d.Author, d.CreatedDate, uploaded,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(id string) (model.Document, error) {
	var d model.Document
	err := s.db.QueryRow(
		`SELECT id, title, file_path, content, page_count, author, created_date, uploaded_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.FilePath, &d.Content, &d.PageCount, &d.Author, &d.CreatedDate, &d.UploadedAt)
	return d, err
}

// ListDocuments returns all documents with their question counts, newest first.
func (s *Store) ListDocuments() ([]model.DocumentSummary, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.title, d.file_path, d.page_count, d.author, d.created_date, d.uploaded_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.document_id = d.id)
		 FROM documents d ORDER BY d.rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.DocumentSummary
	for rows.Next() {
		var ds model.DocumentSummary
		if err := rows.Scan(&ds.ID, &ds.Title, &ds.FilePath, &ds.PageCount, &ds.Author,
			&ds.CreatedDate, &ds.UploadedAt, &ds.QuestionsCount); err != nil {
			return nil, err
		}
		docs = append(docs, ds)
	}
	return docs, rows.Err()
}

// InsertQuestion stores a question and returns its generated ID.
func (s *Store) InsertQuestion(q model.Question) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO questions (id, document_id, position, text, explanation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, q.DocumentID, q.Position, q.Text, q.Explanation, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id string) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, document_id, position, text, explanation, created_at FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.DocumentID, &q.Position, &q.Text, &q.Explanation, &q.CreatedAt)
	return q, err
}

// ListQuestions returns a document's questions in presentation order.
func (s *Store) ListQuestions(documentID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, document_id, position, text, explanation, created_at
		 FROM questions WHERE document_id = ? ORDER BY position, rowid`, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Position, &q.Text, &q.Explanation, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListQuestionStatus returns a document's questions, each with its most
// recent answer (nil when unanswered).
func (s *Store) ListQuestionStatus(documentID string) ([]model.QuestionStatus, error) {
	rows, err := s.db.Query(
		`SELECT q.id, q.document_id, q.position, q.text, q.explanation, q.created_at,
		        a.id, a.text, a.mark, a.submitted_at
		 FROM questions q
		 LEFT JOIN user_answers a ON a.id = (
		     SELECT id FROM user_answers
		     WHERE question_id = q.id
		     ORDER BY rowid DESC LIMIT 1)
		 WHERE q.document_id = ?
		 ORDER BY q.position, q.rowid`, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.QuestionStatus
	for rows.Next() {
		var (
			qs          model.QuestionStatus
			answerID    sql.NullString
			answerText  sql.NullString
			mark        sql.NullInt64
			submittedAt sql.NullTime
		)
		q := &qs.Question
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Position, &q.Text, &q.Explanation, &q.CreatedAt,
			&answerID, &answerText, &mark, &submittedAt); err != nil {
			return nil, err
		}
		if answerID.Valid {
			a := &model.Answer{
				ID:          answerID.String,
				QuestionID:  q.ID,
				Text:        answerText.String,
				SubmittedAt: submittedAt.Time,
			}
			if mark.Valid {
				m := int(mark.Int64)
				a.Mark = &m
			}
			qs.Latest = a
		}
		out = append(out, qs)
	}
	return out, rows.Err()
}

// AddAnswer stores an ungraded answer and returns its generated ID.
func (s *Store) AddAnswer(a model.Answer) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO user_answers (id, question_id, text, mark, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		id, a.QuestionID, a.Text, a.Mark, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetAnswerMark records the grade for an answer.
func (s *Store) SetAnswerMark(id string, mark int) error {
	res, err := s.db.Exec(`UPDATE user_answers SET mark = ? WHERE id = ?`, mark, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetAnswer returns an answer by ID.
func (s *Store) GetAnswer(id string) (model.Answer, error) {
	var a model.Answer
	var mark sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, question_id, text, mark, submitted_at FROM user_answers WHERE id = ?`, id,
	).Scan(&a.ID, &a.QuestionID, &a.Text, &mark, &a.SubmittedAt)
	if mark.Valid {
		m := int(mark.Int64)
		a.Mark = &m
	}
	return a, err
}

// ListAnswers returns all answers for a question, newest first.
func (s *Store) ListAnswers(questionID string) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, mark, submitted_at FROM user_answers
		 WHERE question_id = ? ORDER BY rowid DESC`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var mark sql.NullInt64
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &mark, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if mark.Valid {
			m := int(mark.Int64)
			a.Mark = &m
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
