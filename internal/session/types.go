package session

import "context"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
)

// Mode is the operating mode of a store, fixed at construction.
type Mode string

const (
	// ModeStatic serves a fixed question bank graded locally at read time.
	ModeStatic Mode = "static"
	// ModeNetworked grades answers through a remote service.
	ModeNetworked Mode = "networked"
)

// Direction selects the target of Navigate.
type Direction int

const (
	Next Direction = iota
	Previous
)

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return "unknown"
	}
}

// Question is one active recall question as held by a session.
// Mark is nil until the question has been graded.
type Question struct {
	ID              string
	Prompt          string
	ReferenceAnswer string
	Graded          bool
	Mark            *float64
}

func (q Question) clone() Question {
	if q.Mark != nil {
		m := *q.Mark
		q.Mark = &m
	}
	return q
}

// Grade is the outcome of grading one answer.
type Grade struct {
	Mark float64
	// ReferenceAnswer is the explanation revealed with the grade, if any.
	ReferenceAnswer string
}

// Source supplies the question sequence for a document.
type Source interface {
	ListQuestions(ctx context.Context, documentID string) ([]Question, error)
}

// Grader grades a single answer. Sources that also implement Grader put the
// store into networked mode.
type Grader interface {
	SubmitForGrading(ctx context.Context, questionID, answer string) (Grade, error)
}

// Result is one row of the results view.
type Result struct {
	ID              string
	Prompt          string
	UserAnswer      string
	ReferenceAnswer string
	IsCorrect       bool
}

// Progress summarizes how far through the session the user is.
type Progress struct {
	Position int
	Total    int
	Answered int
}
