package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/models"
)

type AddHabitMsg struct{}

type MarkHabitMsg struct {
	ID string
}

type UnmarkHabitMsg struct {
	ID string
}

type ArchiveHabitMsg struct {
	ID string
}

type ShowHabitMsg struct {
	ID string
}

type Item struct {
	Snapshot models.HabitSnapshot
}

func (i Item) done() bool {
	return completion.Success(i.Snapshot.Habit, i.Snapshot.Required, i.Snapshot.DoneToday)
}

func (i Item) Title() string {
	s := i.Snapshot
	switch {
	case !s.ActiveToday:
		return "- " + s.Habit.Name
	case s.Habit.IsBadHabit && s.DoneToday > 0:
		return "! " + s.Habit.Name
	case i.done():
		return "✓ " + s.Habit.Name
	default:
		return "○ " + s.Habit.Name
	}
}

func (i Item) Description() string {
	s := i.Snapshot
	var today string
	switch {
	case !s.ActiveToday:
		today = "not scheduled today"
	case s.Habit.IsBadHabit && s.DoneToday == 0:
		today = "avoided so far"
	case s.Habit.IsBadHabit:
		today = fmt.Sprintf("%d slip(s) today", s.DoneToday)
	case s.Required > 1:
		today = fmt.Sprintf("%d/%d today", s.DoneToday, s.Required)
	case i.done():
		today = "completed today"
	default:
		today = "not completed today"
	}
	return fmt.Sprintf("%s · streak %d · score %d", today, s.Streaks.Current, s.Score.TotalScore)
}

func (i Item) FilterValue() string { return i.Snapshot.Habit.Name }

type KeyMap struct {
	Add     key.Binding
	Mark    key.Binding
	Unmark  key.Binding
	Archive key.Binding
	Show    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Mark: key.NewBinding(
			key.WithKeys("m", " "),
			key.WithHelp("m", "mark"),
		),
		Unmark: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unmark"),
		),
		Archive: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "archive"),
		),
		Show: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(snapshots []models.HabitSnapshot, width, height int) Model {
	l := list.New(items(snapshots), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	bindings := func() []key.Binding {
		return []key.Binding{keys.Add, keys.Mark, keys.Unmark, keys.Archive, keys.Show}
	}
	l.AdditionalShortHelpKeys = bindings
	l.AdditionalFullHelpKeys = bindings

	return Model{list: l, keys: keys}
}

func items(snapshots []models.HabitSnapshot) []list.Item {
	out := make([]list.Item, len(snapshots))
	for i, s := range snapshots {
		out[i] = Item{Snapshot: s}
	}
	return out
}

// SetHabits replaces the list contents, keeping the cursor in place.
func (m *Model) SetHabits(snapshots []models.HabitSnapshot) {
	m.list.SetItems(items(snapshots))
}

// Selected returns the highlighted habit.
func (m Model) Selected() (models.HabitSnapshot, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Snapshot, ok
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddHabitMsg{} }
		}
		if s, ok := m.Selected(); ok {
			id := s.Habit.ID
			switch {
			case key.Matches(msg, m.keys.Mark):
				return m, func() tea.Msg { return MarkHabitMsg{ID: id} }
			case key.Matches(msg, m.keys.Unmark):
				if s.DoneToday > 0 {
					return m, func() tea.Msg { return UnmarkHabitMsg{ID: id} }
				}
				return m, nil
			case key.Matches(msg, m.keys.Archive):
				return m, func() tea.Msg { return ArchiveHabitMsg{ID: id} }
			case key.Matches(msg, m.keys.Show):
				return m, func() tea.Msg { return ShowHabitMsg{ID: id} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
