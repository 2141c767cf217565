package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/proctorly/backend/internal/engine"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	timerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e056fd"))
	timerLowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e74c3c"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	warnStyle     = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#e74c3c")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#e74c3c")).
			Padding(1, 2)
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
)

func (m Model) View() string {
	switch m.screen {
	case screenSubmitted:
		return m.finalView("Attempt submitted.", "Your answers are in. Press any key to exit.")
	case screenTerminated:
		return m.finalView("Attempt terminated.", "The violation limit was exceeded. Press any key to exit.")
	}

	if m.warning != nil {
		return m.warningView()
	}
	if m.blocked {
		return warnStyle.Render("Fullscreen required.\n\nReturn to fullscreen to continue the test.")
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.screen == screenConfirm {
		b.WriteString(m.confirmView())
		return b.String()
	}

	if m.isCoding() {
		b.WriteString(m.problemView())
	} else {
		b.WriteString(m.questionView())
	}

	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	remaining := m.session.Remaining()
	mins := int(remaining.Minutes())
	secs := int(remaining.Seconds()) % 60

	timer := timerStyle
	if remaining < 5*time.Minute {
		timer = timerLowStyle
	}

	count, budget := m.session.Violations()
	head := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render(fmt.Sprintf("Item %d/%d", m.session.Index()+1, m.session.Count())),
		timer.Render(fmt.Sprintf("%02d:%02d", mins, secs)),
		dimStyle.Render(fmt.Sprintf("violations %d/%d", count, budget)),
	)
	if m.timeUp {
		head += "  " + timerLowStyle.Render("TIME UP — submitting")
	}
	return head
}

func (m Model) questionView() string {
	q := m.currentQuestion()
	if q == nil {
		return dimStyle.Render("No question to display.")
	}

	var b strings.Builder
	b.WriteString(q.Prompt)
	b.WriteString("\n\n")

	for i, opt := range q.Options {
		marker := "[ ]"
		style := lipgloss.NewStyle()
		if m.session.Answers().IsSelected(q.ID, opt.ID) {
			marker = "[x]"
			style = selectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("  %d. %s %s", i+1, marker, opt.Text)))
		b.WriteString("\n")
	}

	if q.Kind == engine.QuestionMultipleChoice {
		b.WriteString(dimStyle.Render("\nSelect all that apply."))
	}
	return b.String()
}

func (m Model) problemView() string {
	p := m.currentProblem()
	if p == nil {
		return dimStyle.Render("No problem to display.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(p.Description)
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("language: " + m.currentLanguageName()))
	b.WriteString("\n")
	b.WriteString(m.code.View())

	if m.lastResult != nil && m.lastResult.ProblemID == p.ID {
		b.WriteString("\n")
		if m.lastResult.Passed {
			b.WriteString(passStyle.Render("last run: passed"))
		} else {
			b.WriteString(failStyle.Render("last run: failed"))
		}
	}
	return b.String()
}

func (m Model) confirmView() string {
	answered := m.session.Answers().AnsweredCount()
	total := m.session.Count()

	s := fmt.Sprintf("Submit your attempt? (%d/%d answered)\n\n", answered, total)
	s += "This is final and cannot be undone.\n\n"
	if m.submitErr != nil {
		s += failStyle.Render(fmt.Sprintf("submission failed: %v", m.submitErr)) + "\n\n"
	}
	s += selectedStyle.Render("y") + " submit   " + dimStyle.Render("n cancel")
	return s
}

func (m Model) warningView() string {
	return warnStyle.Render(fmt.Sprintf(
		"Integrity warning: %s\n\nViolation %d of %d. Exceeding the limit terminates the attempt.\n\nPress enter to continue.",
		m.warning.Violation, m.warning.Count, m.warning.Budget,
	))
}

func (m Model) finalView(title, detail string) string {
	return titleStyle.Render(title) + "\n\n" + detail + "\n"
}

func (m Model) footerView() string {
	if m.isCoding() {
		return dimStyle.Render("ctrl+n/p navigate (next submits code) · ctrl+l language · ctrl+d finish · ctrl+c quit")
	}
	if m.advanceErr != nil {
		return failStyle.Render(fmt.Sprintf("navigation failed: %v", m.advanceErr))
	}
	return dimStyle.Render("1-9 select · ←/→ navigate · enter next/finish · ctrl+d finish · ctrl+c quit")
}

func (m Model) currentLanguageName() string {
	current := m.session.Answers().Language()
	for _, l := range m.session.Languages() {
		if l.ID == current {
			return l.Name
		}
	}
	return "unknown"
}
