package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/cadence/internal/models"
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	DoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	MissStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with the CLI's border style.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

// Status renders a habit's progress for a day as a check box.
func Status(h models.Habit, required, count int) string {
	switch {
	case required == 0:
		return MutedStyle.Render("-")
	case h.IsBadHabit && count == 0:
		return DoneStyle.Render("[x]")
	case h.IsBadHabit:
		return MissStyle.Render(fmt.Sprintf("[!%d]", count))
	case count >= required:
		return DoneStyle.Render("[x]")
	case required > 1:
		return fmt.Sprintf("[%d/%d]", count, required)
	default:
		return "[ ]"
	}
}

// Heatmap renders day records as one row of cells, oldest first.
func Heatmap(records []models.DayRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(HeatCell(r))
	}
	return b.String()
}

func HeatCell(r models.DayRecord) string {
	switch {
	case !r.IsActive:
		return MutedStyle.Render("·")
	case r.IsCompleted:
		return DoneStyle.Render("■")
	case r.CompletionRatio > 0:
		return DoneStyle.Faint(true).Render("▪")
	default:
		return MissStyle.Render("□")
	}
}

func Percent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

// HabitState labels archived and deleted habits.
func HabitState(h models.Habit) string {
	switch {
	case h.IsDeleted():
		return "deleted"
	case h.IsArchived():
		return "archived"
	case h.IsBadHabit:
		return "avoid"
	default:
		return "build"
	}
}
