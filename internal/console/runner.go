// Package console drives a session from a line-based terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appI18n "github.com/pavelanni/recall/internal/i18n"
	"github.com/pavelanni/recall/internal/session"
)

// Commands accepted at the answer prompt. Any other line is an answer.
const (
	cmdNext    = ":next"
	cmdPrev    = ":prev"
	cmdRefresh = ":refresh"
	cmdDone    = ":done"
	cmdQuit    = ":quit"
)

// Option configures a Runner.
type Option func(*Runner)

// WithNoColor disables terminal colors.
func WithNoColor(noColor bool) Option {
	return func(r *Runner) { r.noColor = noColor }
}

// Runner reads answers and commands from in and writes prompts and results
// to out.
type Runner struct {
	store   *session.Store
	in      *bufio.Scanner
	out     io.Writer
	noColor bool
}

// NewRunner creates a runner over store.
func NewRunner(store *session.Store, in io.Reader, out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		store: store,
		in:    bufio.NewScanner(in),
		out:   out,
	}
	r.in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads documentID and takes the user through the session. End of input
// behaves like :done. It returns after the results have been printed or the
// user quits.
func (r *Runner) Run(ctx context.Context, documentID string) error {
	r.println(bold(appI18n.T(ctx, "AppTitle"), r.noColor))
	r.println(appI18n.T(ctx, "ConsoleLoading"))
	if err := r.store.Load(ctx, documentID); err != nil {
		r.println(appI18n.Td(ctx, "ConsoleLoadFailed", map[string]any{"Error": err.Error()}))
		return err
	}
	if len(r.store.Snapshot().Questions) == 0 {
		r.println(appI18n.T(ctx, "ConsoleNoQuestions"))
		return r.finish(ctx)
	}
	r.println(stylize(appI18n.T(ctx, "ConsoleHelp"), r.noColor, colorMuted))

	for {
		r.print("\n" + renderQuestion(ctx, r.store.Snapshot(), r.noColor) + "> ")
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			r.println("")
			return r.finish(ctx)
		}
		line := strings.TrimSpace(r.in.Text())

		switch {
		case line == "":
			continue
		case line == cmdNext:
			if err := r.store.Navigate(session.Next); err != nil {
				return err
			}
		case line == cmdPrev:
			if err := r.store.Navigate(session.Previous); err != nil {
				return err
			}
		case line == cmdRefresh:
			r.store.RefreshGrades(ctx)
			r.println(appI18n.T(ctx, "ConsoleRefreshed"))
		case line == cmdDone:
			return r.finish(ctx)
		case line == cmdQuit:
			r.store.Reset()
			r.println(appI18n.T(ctx, "ConsoleBye"))
			return nil
		case strings.HasPrefix(line, ":"):
			r.println(appI18n.Td(ctx, "ConsoleUnknownCommand", map[string]any{"Command": line}))
		default:
			if err := r.answer(ctx, line); err != nil {
				return err
			}
		}
	}
}

// answer submits text for the current question and moves to the next one.
func (r *Runner) answer(ctx context.Context, text string) error {
	q, ok := r.store.CurrentQuestion()
	if !ok {
		return nil
	}
	if err := r.store.SubmitAnswer(ctx, q.ID, text); err != nil {
		return err
	}
	r.println(appI18n.T(ctx, "ConsoleAnswerSaved"))
	if r.store.Snapshot().IsLast() {
		return nil
	}
	return r.store.Navigate(session.Next)
}

func (r *Runner) finish(ctx context.Context) error {
	if r.store.Mode() == session.ModeNetworked {
		r.println(appI18n.T(ctx, "ConsoleCompleting"))
	}
	if err := r.store.Complete(ctx); err != nil && !errors.Is(err, session.ErrNotReady) {
		return fmt.Errorf("complete session: %w", err)
	}
	r.print("\n" + RenderResults(ctx, r.store.Snapshot(), r.noColor))
	return nil
}

func (r *Runner) print(s string) {
	_, _ = io.WriteString(r.out, s)
}

func (r *Runner) println(s string) {
	_, _ = io.WriteString(r.out, s+"\n")
}
