package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	appI18n "github.com/pavelanni/recall/internal/i18n"
	"github.com/pavelanni/recall/internal/session"
)

var (
	colorTitle     = lipgloss.Color("33")
	colorCorrect   = lipgloss.Color("42")
	colorIncorrect = lipgloss.Color("196")
	colorMuted     = lipgloss.Color("244")
)

func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

func bold(text string, noColor bool) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render(text)
}

// renderQuestion formats the current question with its progress line.
func renderQuestion(ctx context.Context, snap session.Snapshot, noColor bool) string {
	q, ok := snap.CurrentQuestion()
	if !ok {
		return appI18n.T(ctx, "ConsoleNoQuestions") + "\n"
	}
	p := snap.Progress()
	var sb strings.Builder
	header := appI18n.Td(ctx, "QuestionProgress", map[string]any{"Position": p.Position + 1, "Total": p.Total})
	sb.WriteString(bold(header, noColor))
	sb.WriteString(stylize("  ("+appI18n.Tp(ctx, "AnsweredCount", p.Answered)+")", noColor, colorMuted))
	sb.WriteString("\n")
	sb.WriteString(q.Prompt + "\n")
	if answer, ok := snap.Answers[q.ID]; ok {
		sb.WriteString(stylize(appI18n.Td(ctx, "ConsoleCurrentAnswer", map[string]any{"Answer": answer}), noColor, colorMuted))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderResults formats the results view of a session snapshot.
func RenderResults(ctx context.Context, snap session.Snapshot, noColor bool) string {
	results := snap.Results()
	correct, total := snap.Score()

	var sb strings.Builder
	sb.WriteString(bold(appI18n.T(ctx, "ResultsTitle"), noColor) + "\n")
	sb.WriteString(appI18n.Td(ctx, "ResultsScore", map[string]any{"Correct": correct, "Total": total}) + "\n\n")

	for i, r := range results {
		verdict := stylize(appI18n.T(ctx, "ResultIncorrect"), noColor, colorIncorrect)
		if r.IsCorrect {
			verdict = stylize(appI18n.T(ctx, "ResultCorrect"), noColor, colorCorrect)
		}
		fmt.Fprintf(&sb, "%d. %s [%s]\n", i+1, r.Prompt, verdict)

		answer := r.UserAnswer
		if answer == "" {
			answer = appI18n.T(ctx, "ResultNoAnswer")
		}
		fmt.Fprintf(&sb, "   %s: %s\n", appI18n.T(ctx, "ResultYourAnswer"), answer)
		if r.ReferenceAnswer != "" {
			ref := fmt.Sprintf("   %s: %s", appI18n.T(ctx, "ResultReference"), r.ReferenceAnswer)
			sb.WriteString(stylize(ref, noColor, colorMuted) + "\n")
		}
	}
	return sb.String()
}
