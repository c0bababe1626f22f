package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/consistency"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateToday:
		content = docStyle.Render(m.habits.View())
	case StateDetail:
		content = docStyle.Render(m.viewDetail())
	case StateAddHabit:
		content = docStyle.Render(m.form.View())
	case StateConfirmArchive:
		content = m.viewConfirmArchive()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Today", "Detail"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	summary := fmt.Sprintf("%s  %d/%d done  avg score %.0f",
		m.summary.Today, m.summary.CompletedToday, m.summary.ActiveToday, m.summary.AverageScore)
	tabs = append(tabs, statusStyle.Render(summary))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	return statusStyle.Render(m.status)
}

func (m Model) viewDetail() string {
	if m.detail == nil {
		return "Select a habit with enter to see its details."
	}
	s := m.detail
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	lines := []string{
		cli.HeaderStyle.Render(s.Habit.Name),
		row("Type", cli.HabitState(s.Habit)),
		row("Today", cli.Status(s.Habit, s.Required, s.DoneToday)),
		row("Streak", fmt.Sprintf("%d (longest %d, best ever %d)", s.Streaks.Current, s.Streaks.Longest, s.Streaks.BestEver)),
		row("Score", fmt.Sprintf("%d/%d (base %d + bonus %d)", s.Score.TotalScore, constants.ScoreMax, s.Score.BaseScore, s.Score.StreakBonus)),
		row("Consistency", cli.Percent(consistency.Overall(m.series))),
	}
	if n := len(s.Habit.Patterns); n > 0 {
		lines = append(lines, row("Schedule", cli.MutedStyle.Render(models.DescribeRecurrence(s.Habit.Patterns[n-1].Recurrence))))
	}

	lines = append(lines, "", cli.MutedStyle.Render(fmt.Sprintf("Last %d days", m.seriesDays)))
	for _, w := range consistency.WeekGrid(m.series) {
		var b strings.Builder
		b.WriteString(cli.MutedStyle.Render(w.Start.String()) + " ")
		for _, r := range w.Days {
			if r == nil {
				b.WriteString(" ")
				continue
			}
			b.WriteString(cli.HeatCell(*r))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewConfirmArchive() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Are you sure you want to archive this habit?"),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
