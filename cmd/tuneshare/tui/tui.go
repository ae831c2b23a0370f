// Package tui holds the styles, keys, messages and commands shared by the tuneshare tui programs.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	MARGIN                  = 2
	PADDING                 = 1
	MAX_WIDTH               = 80
	PRIMARY_COLOR           = "#B8BABA"
	SECONDARY_COLOR         = "#626262"
	DARK_COLOR              = "#1B1B1B"
	ELEMENT_COLOR           = "#EE9F40"
	SECONDARY_ELEMENT_COLOR = "#EE9F70"
	ERROR_COLOR             = "#CC0000"
	WARNING_COLOR           = "#FF7900"
	CHECK_COLOR             = "#34B233"
	SHUTDOWN_PERIOD         = 500 * time.Millisecond
)

// ------------------------------------------------------ Styles -------------------------------------------------------

var PadText = strings.Repeat(" ", MARGIN)

var BaseStyle = lipgloss.NewStyle()
var InfoStyle = BaseStyle.Copy().Foreground(lipgloss.Color(PRIMARY_COLOR)).Render
var HelpStyle = BaseStyle.Copy().Foreground(lipgloss.Color(SECONDARY_COLOR)).Render
var BoldText = BaseStyle.Copy().Bold(true).Render
var ErrorText = BaseStyle.Copy().Foreground(lipgloss.Color(ERROR_COLOR)).Render
var WarningText = BaseStyle.Copy().Foreground(lipgloss.Color(WARNING_COLOR)).Render
var SuccessText = BaseStyle.Copy().Foreground(lipgloss.Color(CHECK_COLOR)).Render

func NewProgressBar() progress.Model {
	return progress.New(progress.WithGradient(SECONDARY_ELEMENT_COLOR, ELEMENT_COLOR))
}

var WaitingSpinner = spinner.Spinner{
	Frames: []string{"⠋ ", "⠙ ", "⠹ ", "⠸ ", "⠼ ", "⠴ ", "⠦ ", "⠧ ", "⠇ ", "⠏ "},
	FPS:    time.Second / 12,
}

var ReceivingSpinner = spinner.Spinner{
	Frames: []string{"   ", "  «", " ««", "«««"},
	FPS:    time.Second / 2,
}

// LogSeparator returns a dimmed horizontal rule fitting the terminal width.
func LogSeparator(width int) string {
	paddedWidth := width - 2*MARGIN
	if paddedWidth > MAX_WIDTH || paddedWidth <= 0 {
		paddedWidth = MAX_WIDTH
	}
	return HelpStyle(strings.Repeat("─", paddedWidth)) + "\n\n"
}

// ByteCount formats a byte count with SI units.
func ByteCount(b int64) string {
	if b < 0 {
		return "N/A"
	}
	return humanize.Bytes(uint64(b))
}

// ------------------------------------------------------- Keys --------------------------------------------------------

type KeyMap struct {
	Quit key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("(q)", "quit"),
	),
}

// ----------------------------------------------------- Messages ------------------------------------------------------

type ErrorMsg error

// ProgressMsg carries the completion of a transfer in percent.
type ProgressMsg float64

type VersionMsg struct {
	ServerVersion semver.Version
}

// ----------------------------------------------------- Commands ------------------------------------------------------

// TaskCmd prints a finished task above the program and continues with cmd.
func TaskCmd(task string, cmd tea.Cmd) tea.Cmd {
	return tea.Sequence(tea.Println(PadText+"• "+task), cmd)
}

func ErrorCmd(err error) tea.Cmd {
	return tea.Sequence(
		tea.Println(PadText+ErrorText("✗ "+err.Error())),
		tea.Quit,
	)
}

func QuitCmd() tea.Cmd {
	return tea.Tick(SHUTDOWN_PERIOD, func(time.Time) tea.Msg {
		return tea.Quit()
	})
}

// VersionCmd fetches the version of the server at baseURL.
func VersionCmd(ctx context.Context, client *http.Client, baseURL string) tea.Cmd {
	return func() tea.Msg {
		ver, err := semver.FetchServerVersion(ctx, client, baseURL)
		if err != nil {
			return ErrorMsg(fmt.Errorf("fetching server version: %w", err))
		}
		return VersionMsg{ServerVersion: ver}
	}
}
