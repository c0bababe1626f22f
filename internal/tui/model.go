package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/stats"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/tui/components/habitlist"
)

type SessionState int

const (
	StateToday SessionState = iota
	StateDetail
	StateAddHabit
	StateConfirmArchive
)

// tabCount is the number of states reachable with tab.
const tabCount = 2

const (
	minSeriesDays  = 7
	seriesDaysStep = 7
)

type Model struct {
	ctx       context.Context
	store     storage.Provider
	stats     *stats.Service
	clock     calendar.Clock
	state     SessionState
	keys      KeyMap
	help      help.Model
	habits    habitlist.Model
	summary   models.Summary
	form      *huh.Form
	habitForm *HabitFormModel

	detail     *models.HabitSnapshot
	series     []models.DayRecord
	seriesDays int

	habitToArchiveID string
	status           string
	err              error
	quitting         bool
	width            int
	height           int
}

func NewModel(store storage.Provider, svc *stats.Service, clock calendar.Clock) Model {
	m := Model{
		ctx:        context.Background(),
		store:      store,
		stats:      svc,
		clock:      clock,
		state:      StateToday,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		habits:     habitlist.New(nil, 0, 0),
		seriesDays: 4 * seriesDaysStep,
	}
	m.reload(false)
	return m
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateToday:
		keys = append(keys, m.keys.Refresh)
	case StateDetail:
		keys = append(keys, m.keys.Back, m.keys.Longer, m.keys.Shorter)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	switch m.state {
	case StateToday:
		actions = []key.Binding{m.keys.Refresh}
	case StateDetail:
		actions = []key.Binding{m.keys.Back, m.keys.Longer, m.keys.Shorter}
	}
	return [][]key.Binding{global, actions}
}

func (m Model) Init() tea.Cmd {
	return m.habits.Init()
}

// reload recomputes today's summary and the open detail view.
func (m *Model) reload(force bool) {
	summary, err := m.stats.Summary(m.ctx, force)
	if err != nil {
		m.fail("load habits", err)
		return
	}
	m.summary = summary
	m.habits.SetHabits(summary.Habits)

	if m.detail != nil {
		if err := m.showDetail(m.detail.Habit.ID); err != nil {
			m.detail = nil
			m.series = nil
		}
	}
}

func (m *Model) showDetail(habitID string) error {
	snap, err := m.stats.Snapshot(m.ctx, habitID)
	if err != nil {
		return err
	}
	series, err := m.stats.Series(m.ctx, habitID, m.seriesDays)
	if err != nil {
		return err
	}
	m.detail = &snap
	m.series = series
	return nil
}

func (m *Model) fail(action string, err error) {
	logger.Error("tui action failed", "action", action, "error", err)
	m.err = fmt.Errorf("failed to %s: %w", action, err)
}

func (m *Model) notify(format string, args ...any) {
	m.err = nil
	m.status = fmt.Sprintf(format, args...)
}
