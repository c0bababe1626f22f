package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/tui/components/habitlist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.habits.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case habitlist.AddHabitMsg:
		m.habitForm = newHabitFormModel()
		m.form = NewHabitForm(m.habitForm)
		m.state = StateAddHabit
		return m, m.form.Init()

	case habitlist.MarkHabitMsg:
		m.mark(msg.ID)
		return m, nil

	case habitlist.UnmarkHabitMsg:
		m.unmark(msg.ID)
		return m, nil

	case habitlist.ArchiveHabitMsg:
		m.habitToArchiveID = msg.ID
		m.state = StateConfirmArchive
		return m, nil

	case habitlist.ShowHabitMsg:
		if err := m.showDetail(msg.ID); err != nil {
			m.fail("load habit", err)
			return m, nil
		}
		m.state = StateDetail
		return m, nil
	}

	switch m.state {
	case StateAddHabit:
		return m, m.updateAddHabit(msg)
	case StateConfirmArchive:
		m.updateConfirmArchive(msg)
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !m.filtering() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		}

		if m.state == StateDetail {
			m.updateDetail(msg)
			return m, nil
		}
		if key.Matches(msg, m.keys.Refresh) {
			m.stats.InvalidateAll()
			m.reload(true)
			m.notify("Refreshed")
			return m, nil
		}
	}

	if m.state != StateToday {
		return m, nil
	}
	var cmd tea.Cmd
	m.habits, cmd = m.habits.Update(msg)
	return m, cmd
}

func (m Model) filtering() bool {
	return m.state == StateToday && m.habits.Filtering()
}

func (m *Model) updateDetail(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.state = StateToday
	case key.Matches(msg, m.keys.Longer):
		m.resize(m.seriesDays + seriesDaysStep)
	case key.Matches(msg, m.keys.Shorter):
		m.resize(m.seriesDays - seriesDaysStep)
	}
}

func (m *Model) resize(days int) {
	days = min(max(days, minSeriesDays), constants.MaxSeriesDays)
	if days == m.seriesDays || m.detail == nil {
		return
	}
	m.seriesDays = days
	if err := m.showDetail(m.detail.Habit.ID); err != nil {
		m.fail("load series", err)
	}
}

func (m *Model) updateAddHabit(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateToday
		return nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		h, err := m.habitForm.Habit(m.clock())
		if err == nil {
			err = m.store.AddHabit(h)
		}
		if err != nil {
			m.fail("add habit", err)
			m.state = StateToday
			return cmd
		}
		m.stats.Invalidate(h.ID)
		m.reload(false)
		m.notify("Added %q", h.Name)
		m.state = StateToday
	case huh.StateAborted:
		m.state = StateToday
	}
	return cmd
}

func (m *Model) updateConfirmArchive(msg tea.Msg) {
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch msgKey.String() {
	case "y", "Y":
		if err := m.store.ArchiveHabit(m.habitToArchiveID); err != nil {
			m.fail("archive habit", err)
		} else {
			m.stats.Invalidate(m.habitToArchiveID)
			m.reload(false)
			m.notify("Archived habit")
		}
		m.habitToArchiveID = ""
		m.state = StateToday
	case "n", "N", "esc":
		m.habitToArchiveID = ""
		m.state = StateToday
	}
}

func (m *Model) mark(habitID string) {
	err := m.stats.RecordCompletion(m.ctx, models.Completion{
		ID:        uuid.New().String(),
		HabitID:   habitID,
		Day:       m.clock(),
		Completed: true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		m.fail("mark habit", err)
		return
	}
	m.reload(false)
	m.notify("Marked")
}

func (m *Model) unmark(habitID string) {
	today := m.clock()
	records, err := m.store.GetCompletionsForHabit(habitID, today, today)
	if err != nil {
		m.fail("unmark habit", err)
		return
	}
	if len(records) == 0 {
		return
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if err := m.stats.RemoveCompletion(m.ctx, latest); err != nil {
		m.fail("unmark habit", err)
		return
	}
	m.reload(false)
	m.notify("Unmarked")
}
