// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it reports key commands on
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

const refreshInterval = 200 * time.Millisecond

// StatusFunc snapshots mixer state; it is called from the TUI goroutine
type StatusFunc func() StatusMsg

// Controls carries commands from the keyboard to the mixer
type Controls struct {
	Volume  chan audio.Decibels
	StopAll chan struct{}
	Quit    chan struct{}
}

// NewControls creates a controls handler
func NewControls() *Controls {
	return &Controls{
		Volume:  make(chan audio.Decibels, 10),
		StopAll: make(chan struct{}, 1),
		Quit:    make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(status StatusFunc, controls *Controls) Model {
	return Model{
		status:   status,
		controls: controls,
		volume:   audio.Identity,
	}
}

// Run shows the TUI until the user quits
func Run(status StatusFunc, controls *Controls) error {
	p := tea.NewProgram(NewModel(status, controls), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type tickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
