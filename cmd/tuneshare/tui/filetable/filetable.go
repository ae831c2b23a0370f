package filetable

import (
	"math"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	defaultMaxTableHeight         = 4
	nameColumnWidthFactor float64 = 0.6
	infoColumnWidthFactor float64 = 1 - nameColumnWidthFactor
)

var fileTableStyle = tui.BaseStyle.Copy().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(tui.SECONDARY_COLOR)).
	MarginLeft(tui.MARGIN)

type Option func(m *Model)

// Row is a name and the information shown next to it.
type Row struct {
	Name string
	Info string
}

type Model struct {
	Width       int
	MaxHeight   int
	nameTitle   string
	infoTitle   string
	rows        []Row
	table       table.Model
	tableStyles table.Styles
}

func New(opts ...Option) Model {
	m := Model{
		Width:     tui.MAX_WIDTH,
		MaxHeight: defaultMaxTableHeight,
		nameTitle: "File",
		infoTitle: "Size",
		table: table.New(
			table.WithFocused(true),
			table.WithHeight(defaultMaxTableHeight),
		),
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(tui.SECONDARY_COLOR)).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(tui.DARK_COLOR)).
		Background(lipgloss.Color(tui.SECONDARY_ELEMENT_COLOR)).
		Bold(false)
	m.tableStyles = s
	m.table.SetStyles(m.tableStyles)

	for _, opt := range opts {
		opt(&m)
	}
	m.updateColumns()
	m.updateRows()
	return m
}

// WithTitles sets the column titles.
func WithTitles(name, info string) Option {
	return func(m *Model) {
		m.nameTitle = name
		m.infoTitle = info
	}
}

func WithRows(rows []Row) Option {
	return func(m *Model) {
		m.SetRows(rows)
	}
}

func WithMaxHeight(height int) Option {
	return func(m *Model) {
		m.SetMaxHeight(height)
	}
}

func (m *Model) SetRows(rows []Row) {
	m.rows = append(m.rows[:0], rows...)
	m.updateHeight()
	m.updateColumns()
	m.updateRows()
}

func (m *Model) SetMaxHeight(height int) {
	m.MaxHeight = height
	m.updateHeight()
}

func (m *Model) updateHeight() {
	m.table.SetHeight(int(math.Min(float64(m.MaxHeight), float64(len(m.rows)))))
}

func (m *Model) getMaxWidth() int {
	return int(math.Min(tui.MAX_WIDTH-2*tui.MARGIN, float64(m.Width)))
}

func (m *Model) updateColumns() {
	w := m.getMaxWidth()
	m.table.SetColumns([]table.Column{
		{Title: m.nameTitle, Width: int(float64(w) * nameColumnWidthFactor)},
		{Title: m.infoTitle, Width: int(float64(w) * infoColumnWidthFactor)},
	})
}

func (m *Model) updateRows() {
	var tableRows []table.Row
	maxNameWidth := int(float64(m.getMaxWidth()) * nameColumnWidthFactor)
	maxInfoWidth := int(float64(m.getMaxWidth()) * infoColumnWidthFactor)
	for _, row := range m.rows {
		tableRows = append(tableRows, table.Row{
			truncateLeft(row.Name, maxNameWidth),
			runewidth.Truncate(row.Info, maxInfoWidth, "…"),
		})
	}
	m.table.SetRows(tableRows)
}

// truncateLeft truncates overflowing names from the left, keeping the extension visible.
func truncateLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw <= width {
		return s
	}
	return runewidth.TruncateLeft(s, sw-width+1, "…")
}

func (Model) Init() tea.Cmd {
	return nil
}

func (m Model) Finalize() tea.Model {
	m.table.Blur()

	s := m.tableStyles
	s.Selected = s.Selected.UnsetBackground().UnsetForeground()
	m.table.SetStyles(s)

	return m
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width - 2*tui.MARGIN - 4
		if m.Width > tui.MAX_WIDTH {
			m.Width = tui.MAX_WIDTH
		}
		m.updateColumns()
		m.updateRows()
		return m, nil

	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	return fileTableStyle.Render(m.table.View()) + "\n\n"
}
