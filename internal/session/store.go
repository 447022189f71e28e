// Package session implements the test session manager: it owns the question
// sequence, the navigation position and the user's answers, drives grading,
// and reconciles grades that arrive asynchronously.
//
// Every asynchronous request is tagged with the generation that was current
// when it was issued. Load and Reset start a new generation, and results
// tagged with an older one are dropped when they arrive.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// DefaultGradingTimeout bounds a single background grading request.
const DefaultGradingTimeout = 2 * time.Minute

// Option configures a Store.
type Option func(*Store)

// WithPolicy overrides the grading policy chosen from the source's mode.
func WithPolicy(p GradingPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithGradingTimeout bounds each background grading request. Zero disables
// the bound.
func WithGradingTimeout(d time.Duration) Option {
	return func(s *Store) { s.gradingTimeout = d }
}

// inflight tracks one outstanding grading request.
type inflight struct {
	gen  uint64
	done chan struct{}
}

// Store is the session state for one test-taking flow. It is safe for
// concurrent use; presentation code must treat everything it reads as a
// snapshot.
type Store struct {
	src            Source
	grader         Grader
	mode           Mode
	policy         GradingPolicy
	log            *slog.Logger
	gradingTimeout time.Duration

	mu         sync.Mutex
	gen        uint64
	documentID string
	status     Status
	lastErr    string
	questions  []Question
	index      map[string]int
	position   int
	answers    map[string]string
	answerSeq  map[string]uint64
	pending    map[*inflight]struct{}
	completing bool

	// clock ticks on every answer and merged grade; touched holds the tick
	// of the latest one per question. A refresh only overwrites questions
	// untouched since it was issued.
	clock   uint64
	touched map[string]uint64

	// refreshMu serializes RefreshGrades.
	refreshMu sync.Mutex
	workers   conc.WaitGroup
}

// New creates an idle store over src. If src also implements Grader the
// store runs in networked mode, otherwise in static mode.
func New(src Source, opts ...Option) *Store {
	s := &Store{
		src:            src,
		mode:           ModeStatic,
		policy:         ExactMatchPolicy{},
		log:            slog.Default(),
		gradingTimeout: DefaultGradingTimeout,
		status:         StatusIdle,
		answers:        map[string]string{},
		answerSeq:      map[string]uint64{},
		pending:        map[*inflight]struct{}{},
		touched:        map[string]uint64{},
	}
	if g, ok := src.(Grader); ok {
		s.grader = g
		s.mode = ModeNetworked
		s.policy = RemoteMarkPolicy{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode reports the store's operating mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Load fetches the question sequence for documentID and starts a new
// session. It may be called in any state; prior session data is discarded.
// If a later Load or Reset happens before the source responds, the result is
// dropped and ErrSuperseded is returned.
func (s *Store) Load(ctx context.Context, documentID string) error {
	s.mu.Lock()
	gen := s.startGenerationLocked()
	s.documentID = documentID
	s.status = StatusLoading
	s.mu.Unlock()

	questions, err := s.src.ListQuestions(ctx, documentID)
	if err == nil {
		err = checkUnique(questions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding superseded load", "document_id", documentID)
		return ErrSuperseded
	}
	if err != nil {
		s.status = StatusIdle
		s.lastErr = err.Error()
		s.log.Error("failed to load questions", "document_id", documentID, "error", err)
		return fmt.Errorf("load questions for %q: %w", documentID, err)
	}

	s.questions = make([]Question, len(questions))
	s.index = make(map[string]int, len(questions))
	for i, q := range questions {
		s.questions[i] = q.clone()
		s.index[q.ID] = i
	}
	s.status = StatusReady
	s.log.Debug("loaded questions", "document_id", documentID, "count", len(questions))
	return nil
}

// Navigate moves the position one question forward or back. Moving past
// either end is a silent no-op.
func (s *Store) Navigate(dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusReady {
		return ErrNotReady
	}
	switch dir {
	case Next:
		if s.position < len(s.questions)-1 {
			s.position++
		}
	case Previous:
		if s.position > 0 {
			s.position--
		}
	default:
		return fmt.Errorf("unknown direction %d", int(dir))
	}
	return nil
}

// SubmitAnswer records text as the answer to questionID. The answer is
// visible to readers as soon as SubmitAnswer returns. In networked mode the
// answer is then graded in the background and the grade merged when it
// arrives; grading failures are logged and leave the question ungraded.
// Once Complete has started, answers are rejected with ErrNotReady.
func (s *Store) SubmitAnswer(ctx context.Context, questionID, text string) error {
	s.mu.Lock()
	if s.status != StatusReady || s.completing {
		s.mu.Unlock()
		return ErrNotReady
	}
	if _, ok := s.index[questionID]; !ok {
		s.mu.Unlock()
		s.log.Warn("answer for unknown question ignored", "question_id", questionID)
		return &InvalidReferenceError{QuestionID: questionID}
	}
	s.answers[questionID] = text
	s.answerSeq[questionID]++
	s.touchLocked(questionID)
	if s.grader == nil {
		s.mu.Unlock()
		return nil
	}
	req := &inflight{gen: s.gen, done: make(chan struct{})}
	seq := s.answerSeq[questionID]
	s.pending[req] = struct{}{}
	s.mu.Unlock()

	// The caller's context usually ends with the request that submitted
	// the answer; grading outlives it.
	gctx := context.WithoutCancel(ctx)
	s.workers.Go(func() {
		s.grade(gctx, req, seq, questionID, text)
	})
	return nil
}

func (s *Store) grade(ctx context.Context, req *inflight, seq uint64, questionID, text string) {
	defer func() {
		s.mu.Lock()
		delete(s.pending, req)
		s.mu.Unlock()
		close(req.done)
	}()
	if s.gradingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gradingTimeout)
		defer cancel()
	}

	g, err := s.grader.SubmitForGrading(ctx, questionID, text)
	if err != nil {
		s.log.Warn("grading failed, grade stays pending", "question_id", questionID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.gen != s.gen {
		s.log.Debug("discarding grade from previous session", "question_id", questionID)
		return
	}
	if s.status != StatusReady {
		s.log.Debug("discarding grade for finished session", "question_id", questionID)
		return
	}
	// A newer answer to the same question is being graded.
	if s.answerSeq[questionID] != seq {
		return
	}
	i, ok := s.index[questionID]
	if !ok {
		return
	}
	mark := g.Mark
	q := &s.questions[i]
	q.Graded = true
	q.Mark = &mark
	if g.ReferenceAnswer != "" {
		q.ReferenceAnswer = g.ReferenceAnswer
	}
	s.touchLocked(questionID)
}

func (s *Store) touchLocked(questionID string) {
	s.clock++
	s.touched[questionID] = s.clock
}

// RefreshGrades re-fetches grading state for every loaded question and
// merges it by id. It only acts on a ready networked session, and failures
// are logged rather than returned. Concurrent refreshes run one at a time.
// Questions answered or graded while the refresh was in flight keep their
// newer state.
func (s *Store) RefreshGrades(ctx context.Context) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	if s.grader == nil || s.status != StatusReady || len(s.questions) == 0 {
		s.mu.Unlock()
		return
	}
	gen, documentID, issued := s.gen, s.documentID, s.clock
	s.mu.Unlock()

	fresh, err := s.src.ListQuestions(ctx, documentID)
	if err != nil {
		s.log.Warn("failed to refresh grades", "document_id", documentID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.status != StatusReady {
		s.log.Debug("discarding stale grade refresh", "document_id", documentID)
		return
	}
	for _, f := range fresh {
		i, ok := s.index[f.ID]
		if !ok {
			s.log.Warn("refresh returned unknown question", "error", &InvalidReferenceError{QuestionID: f.ID})
			continue
		}
		if s.touched[f.ID] > issued {
			s.log.Debug("keeping newer grade over refresh", "question_id", f.ID)
			continue
		}
		q := &s.questions[i]
		if f.ReferenceAnswer != "" {
			q.ReferenceAnswer = f.ReferenceAnswer
		}
		// Grades only move forward; an ungraded entry never erases one.
		if f.Graded && f.Mark != nil {
			mark := *f.Mark
			q.Graded = true
			q.Mark = &mark
		}
	}
}

// Complete waits for outstanding grading, refreshes grades and freezes the
// session. Calling it on a completed session is a no-op.
func (s *Store) Complete(ctx context.Context) error {
	s.mu.Lock()
	switch s.status {
	case StatusCompleted:
		s.mu.Unlock()
		return nil
	case StatusReady:
	default:
		s.mu.Unlock()
		return ErrNotReady
	}
	gen := s.gen
	s.completing = true
	var waits []chan struct{}
	for req := range s.pending {
		if req.gen == gen {
			waits = append(waits, req.done)
		}
	}
	s.mu.Unlock()

	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			s.mu.Lock()
			if gen == s.gen {
				s.completing = false
			}
			s.mu.Unlock()
			return ctx.Err()
		}
	}

	s.RefreshGrades(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	if s.status == StatusReady {
		s.status = StatusCompleted
	}
	s.completing = false
	return nil
}

// Reset returns the store to idle and invalidates every request issued
// before it.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startGenerationLocked()
	s.documentID = ""
	s.status = StatusIdle
}

// Wait blocks until every background grading request has finished. The
// store remains usable afterwards.
func (s *Store) Wait() {
	s.workers.Wait()
}

// startGenerationLocked clears session data and bumps the generation.
func (s *Store) startGenerationLocked() uint64 {
	s.gen++
	s.lastErr = ""
	s.questions = nil
	s.index = nil
	s.position = 0
	s.answers = map[string]string{}
	s.answerSeq = map[string]uint64{}
	s.touched = map[string]uint64{}
	s.completing = false
	return s.gen
}

// Snapshot returns a consistent copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		DocumentID: s.documentID,
		Mode:       s.mode,
		Status:     s.status,
		Err:        s.lastErr,
		Position:   s.position,
		Questions:  make([]Question, len(s.questions)),
		Answers:    make(map[string]string, len(s.answers)),
		policy:     s.policy,
	}
	for id, text := range s.answers {
		snap.Answers[id] = text
	}
	for i, q := range s.questions {
		answer, ok := s.answers[q.ID]
		snap.Questions[i] = s.policy.View(q.clone(), answer, ok)
	}
	return snap
}

// CurrentQuestion returns the question at the current position.
func (s *Store) CurrentQuestion() (Question, bool) {
	return s.Snapshot().CurrentQuestion()
}

// Progress returns the current position, total and answered counts.
func (s *Store) Progress() Progress {
	return s.Snapshot().Progress()
}

// Results returns the per-question results view.
func (s *Store) Results() []Result {
	return s.Snapshot().Results()
}

func checkUnique(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
