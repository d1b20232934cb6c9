// Package tui is the terminal shell: a live table of downloads driven by
// polling the daemon's control plane.
package tui

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/client"
	"github.com/fetchd-app/fetchd/internal/clipboard"
	"github.com/fetchd-app/fetchd/internal/download"
)

const pollInterval = 500 * time.Millisecond

// Row is one download as displayed: metadata joined with its latest
// observed state.
type Row struct {
	Metadata download.Metadata
	State    download.State
}

type snapshotMsg struct {
	rows []Row
	err  error
}

type tickMsg time.Time

type actionDoneMsg struct{ err error }

type Model struct {
	client *client.Client
	rows   []Row
	cursor int
	width  int
	height int
	bar    progress.Model
	status string
	err    error
}

func NewModel(c *client.Client) Model {
	return Model{
		client: c,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// fetch joins the daemon's metadata and state listings into stable-sorted
// rows.
func (m Model) fetch() tea.Msg {
	metadata, err := m.client.Metadata()
	if err != nil {
		return snapshotMsg{err: err}
	}
	states, err := m.client.States()
	if err != nil {
		return snapshotMsg{err: err}
	}
	byID := make(map[uuid.UUID]download.State, len(states))
	for _, entry := range states {
		byID[entry.ID] = entry.State
	}
	rows := make([]Row, 0, len(metadata))
	for _, md := range metadata {
		rows = append(rows, Row{Metadata: md, State: byID[md.ID]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Metadata.FilePath != rows[j].Metadata.FilePath {
			return rows[i].Metadata.FilePath < rows[j].Metadata.FilePath
		}
		return rows[i].Metadata.ID.String() < rows[j].Metadata.ID.String()
	})
	return snapshotMsg{rows: rows}
}

func (m Model) selected() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch, tick())

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.rows = msg.rows
			if m.cursor >= len(m.rows) && len(m.rows) > 0 {
				m.cursor = len(m.rows) - 1
			}
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = ""
		}
		return m, m.fetch

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "a":
		url := clipboard.ReadURL()
		if url == "" {
			m.status = "clipboard does not contain a http(s) URL"
			return m, nil
		}
		m.status = "adding " + url
		return m, m.action(func() error {
			_, err := m.client.Create(url)
			return err
		})

	case "s":
		if row, ok := m.selected(); ok {
			return m, m.action(func() error { return m.client.Start(row.Metadata.ID) })
		}

	case "r":
		if row, ok := m.selected(); ok {
			return m, m.action(func() error { return m.client.Resume(row.Metadata.ID) })
		}

	case "p":
		if row, ok := m.selected(); ok {
			return m, m.action(func() error { return m.client.Pause(row.Metadata.ID) })
		}

	case "d":
		if row, ok := m.selected(); ok {
			return m, m.action(func() error { return m.client.Delete(row.Metadata.ID, false) })
		}

	case "R":
		return m, m.action(m.client.StartAll)

	case "P":
		return m, m.action(m.client.StopAll)
	}
	return m, nil
}

func (m Model) action(f func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: f()}
	}
}
