package transferprogress

import (
	"fmt"
	"math"
	"time"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

type Option func(*Model)

// WithPayloadSize sets the expected size of the transfer, used for speed estimates.
func WithPayloadSize(size int64) Option {
	return func(m *Model) {
		m.PayloadSize = size
	}
}

type Model struct {
	PayloadSize                int64
	bytesTransferred           int64
	progress                   float64
	TransferStartTime          time.Time
	TransferSpeedEstimateBps   int64
	EstimatedRemainingDuration time.Duration

	Width       int
	progressBar progress.Model
}

func New(opts ...Option) Model {
	m := Model{
		progressBar: tui.NewProgressBar(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m *Model) StartTransfer() {
	m.TransferStartTime = time.Now()
}

// Percent returns the completion of the transfer in percent.
func (m Model) Percent() float64 {
	return m.progress * 100
}

func (Model) Init() tea.Cmd {
	return nil
}

func (m Model) View() string {
	return m.progressBar.ViewAs(m.progress)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width - 2*tui.MARGIN - 4
		if m.Width > tui.MAX_WIDTH {
			m.Width = tui.MAX_WIDTH
		}
		m.progressBar.Width = m.Width
		return m, nil

	case tui.ProgressMsg:
		if m.TransferStartTime.IsZero() {
			m.StartTransfer()
		}
		m.progress = math.Max(0, math.Min(1.0, float64(msg)/100))
		if m.PayloadSize <= 0 {
			return m, nil
		}
		m.bytesTransferred = int64(m.progress * float64(m.PayloadSize))
		secondsSpent := time.Since(m.TransferStartTime).Seconds()
		if secondsSpent <= 0 || m.bytesTransferred == 0 {
			return m, nil
		}
		bytesRemaining := m.PayloadSize - m.bytesTransferred
		linearRemainingSeconds := float64(bytesRemaining) * secondsSpent / float64(m.bytesTransferred)
		if remainingDuration, err := time.ParseDuration(fmt.Sprintf("%fs", linearRemainingSeconds)); err != nil {
			return m, tui.ErrorCmd(errors.Wrap(err, "failed to parse duration of estimated remaining transfer time"))
		} else {
			m.EstimatedRemainingDuration = remainingDuration
		}
		m.TransferSpeedEstimateBps = int64(float64(m.bytesTransferred) / secondsSpent)
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd

	default:
		return m, nil
	}
}
