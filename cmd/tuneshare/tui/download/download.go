package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/filetable"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/transferprogress"
	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ------------------------------------------------------ tui State -----------------------------------------------------
type tuiState int

// Flows from the top down.
const (
	showEstablishing tuiState = iota
	showDownloading
	showFinished
)

// ------------------------------------------------------ Messages -----------------------------------------------------

type startMsg struct{}

type downloadDoneMsg struct {
	path string
	size int64
}

// ------------------------------------------------------- Model -------------------------------------------------------

type Option func(m *model)

// WithVersion enables the compatibility check against the server version.
func WithVersion(version semver.Version) Option {
	return func(m *model) {
		m.version = &version
	}
}

// WithHTTPClient sets the client used for the version check.
func WithHTTPClient(client *http.Client) Option {
	return func(m *model) {
		m.client = client
	}
}

type model struct {
	state    tuiState
	session  *session.Session
	filename string
	peer     directory.PeerAddr
	version  *semver.Version
	client   *http.Client

	ctx  context.Context
	msgs chan tea.Msg

	path string
	err  error

	width            int
	spinner          spinner.Model
	transferProgress transferprogress.Model
	fileTable        filetable.Model
	help             help.Model
	keys             tui.KeyMap
}

// New creates a new download program for filename shared by peer.
func New(s *session.Session, filename string, peer directory.PeerAddr, opts ...Option) *tea.Program {
	return tea.NewProgram(newModel(s, filename, peer, opts...))
}

func newModel(s *session.Session, filename string, peer directory.PeerAddr, opts ...Option) model {
	m := model{
		session:          s,
		filename:         filename,
		peer:             peer,
		ctx:              context.Background(),
		msgs:             make(chan tea.Msg, 10),
		transferProgress: transferprogress.New(),
		fileTable:        filetable.New(),
		help:             help.New(),
		keys:             tui.Keys,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.resetSpinner()
	return m
}

// Result returns the saved path or the error of a finished program.
func Result(final tea.Model) (string, error) {
	m, ok := final.(model)
	if !ok {
		return "", errors.New("unexpected program model")
	}
	if m.err != nil {
		return "", m.err
	}
	if m.state != showFinished {
		return "", errors.New("download aborted")
	}
	return m.path, nil
}

func (m model) Init() tea.Cmd {
	var versionCmd tea.Cmd
	if m.version != nil {
		versionCmd = tui.VersionCmd(m.ctx, m.client, m.session.Config().ProxyURL)
	}
	return tea.Sequence(versionCmd, tea.Batch(m.spinner.Tick, func() tea.Msg { return startMsg{} }))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.VersionMsg:
		var message string
		switch m.version.Compare(msg.ServerVersion) {
		case semver.CompareNewMajor,
			semver.CompareOldMajor:
			m.err = fmt.Errorf("tuneshare version (%s) incompatible with server version (%s)", m.version, msg.ServerVersion)
			return m, tui.ErrorCmd(m.err)
		case semver.CompareNewMinor,
			semver.CompareNewPatch:
			message = tui.WarningText(fmt.Sprintf("tuneshare version (%s) newer than server version (%s)", m.version, msg.ServerVersion))
		case semver.CompareOldMinor,
			semver.CompareOldPatch:
			message = tui.WarningText(fmt.Sprintf("Server version (%s) newer than tuneshare version (%s)", msg.ServerVersion, m.version))
		case semver.CompareEqual:
			message = tui.SuccessText(fmt.Sprintf("tuneshare version (%s) compatible with server version (%s)", m.version, msg.ServerVersion))
		}
		return m, tui.TaskCmd(message, nil)

	case startMsg:
		if m.state != showEstablishing || m.err != nil {
			return m, nil
		}
		m.state = showDownloading
		m.resetSpinner()
		m.transferProgress.StartTransfer()
		message := fmt.Sprintf("Requesting %s from peer %s", m.filename, m.peer)
		return m, tui.TaskCmd(message, tea.Batch(m.spinner.Tick, listenCmd(m.msgs), m.downloadCmd()))

	case tui.ProgressMsg:
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)
		return m, tea.Batch(listenCmd(m.msgs), transferProgressCmd)

	case downloadDoneMsg:
		m.state = showFinished
		m.path = msg.path
		m.transferProgress.PayloadSize = msg.size
		transferProgressModel, _ := m.transferProgress.Update(tui.ProgressMsg(100))
		m.transferProgress = transferProgressModel.(transferprogress.Model)

		m.fileTable.SetMaxHeight(math.MaxInt)
		m.fileTable.SetRows([]filetable.Row{{Name: msg.path, Info: tui.ByteCount(msg.size)}})
		m.fileTable = m.fileTable.Finalize().(filetable.Model)
		message := fmt.Sprintf("Download completed in %s",
			time.Since(m.transferProgress.TransferStartTime).Round(time.Millisecond).String())
		return m, tui.TaskCmd(message, tui.QuitCmd())

	case tui.ErrorMsg:
		m.err = msg
		return m, tui.ErrorCmd(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		fileTableModel, fileTableCmd := m.fileTable.Update(msg)
		m.fileTable = fileTableModel.(filetable.Model)
		return m, fileTableCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)

		fileTableModel, fileTableCmd := m.fileTable.Update(msg)
		m.fileTable = fileTableModel.(filetable.Model)
		return m, tea.Batch(transferProgressCmd, fileTableCmd)

	default:
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)
		return m, tea.Batch(spinnerCmd, transferProgressCmd)
	}
}

func (m model) View() string {
	switch m.state {

	case showEstablishing:
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(fmt.Sprintf("%s Contacting directory server", m.spinner.View())) + "\n\n" +
			tui.PadText + m.help.View(m.keys) + "\n\n"

	case showDownloading:
		downloadingText := fmt.Sprintf("%s Downloading %s from %s", m.spinner.View(), tui.BoldText(m.filename), m.peer)
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(downloadingText) + "\n\n" +
			tui.PadText + m.transferProgress.View() + "\n\n" +
			tui.PadText + m.help.View(m.keys) + "\n\n"

	case showFinished:
		finishedText := fmt.Sprintf("Saved %s", filepath.Base(m.path))
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(finishedText) + "\n\n" +
			tui.PadText + m.transferProgress.View() + "\n\n" +
			m.fileTable.View()

	default:
		return ""
	}
}

// ------------------------------------------------------ Commands -----------------------------------------------------

func (m model) downloadCmd() tea.Cmd {
	s, ctx, msgs := m.session, m.ctx, m.msgs
	filename, peer := m.filename, m.peer
	return func() tea.Msg {
		path, err := s.Download(ctx, filename, peer, func(percent float64) {
			select {
			case msgs <- tui.ProgressMsg(percent):
			default:
			}
		})
		if err != nil {
			return tui.ErrorMsg(err)
		}
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		return downloadDoneMsg{path: path, size: size}
	}
}

func listenCmd(msgs chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-msgs
	}
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

func (m *model) resetSpinner() {
	m.spinner = spinner.New()
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ELEMENT_COLOR))
	switch m.state {
	case showDownloading:
		m.spinner.Spinner = tui.ReceivingSpinner
	default:
		m.spinner.Spinner = tui.WaitingSpinner
	}
}
