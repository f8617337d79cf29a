// ABOUTME: Bubbletea model for the mixer TUI
// ABOUTME: Shows output status and playing sounds and maps keys to mixer commands
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-mixer/pkg/audio"
)

const (
	volumeStep = 3
	maxVolume  = audio.Decibels(6)
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	soundStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// SoundStatus describes one playing sound
type SoundStatus struct {
	Name      string
	Position  float64
	Duration  float64
	State     string
	Streaming bool
	Error     bool
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Backend     string
	Device      string
	SampleRate  int
	StreamState string
	Restarts    int
	RemoteAddr  string
	Sounds      []SoundStatus
}

// Model represents the TUI state
type Model struct {
	status   StatusFunc
	controls *Controls

	// Output
	backend     string
	device      string
	sampleRate  int
	streamState string
	restarts    int
	remoteAddr  string

	sounds []SoundStatus

	// Playback
	volume audio.Decibels

	showDebug bool
	quitting  bool

	// Dimensions
	width  int
	height int
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.status != nil {
			m.applyStatus(m.status())
		}
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping mixer...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resonate Mixer"))
	b.WriteString("\n\n")

	m.field(&b, "Output: ", fmt.Sprintf("%s (%s)", m.device, m.backend))
	m.field(&b, "Stream: ", fmt.Sprintf("%s at %d Hz", m.streamState, m.sampleRate))
	if m.restarts > 0 {
		m.field(&b, "Restarts: ", fmt.Sprintf("%d", m.restarts))
	}
	if m.remoteAddr != "" {
		m.field(&b, "Remote: ", m.remoteAddr)
	}
	m.field(&b, "Volume: ", fmt.Sprintf("[%s] %+.0f dB", renderBar(float64(m.volume-audio.Silence), float64(maxVolume-audio.Silence), 10), float64(m.volume)))
	b.WriteString("\n")

	b.WriteString(soundStyle.Render(fmt.Sprintf("Sounds (%d)", len(m.sounds))))
	b.WriteString("\n\n")
	if len(m.sounds) == 0 {
		b.WriteString(valueStyle.Render("  Nothing playing"))
		b.WriteString("\n")
	}
	for _, s := range m.sounds {
		b.WriteString(m.renderSound(s))
		b.WriteString("\n")
	}

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("window %dx%d", m.width, m.height)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  s:Stop all  d:Debug  q:Quit"))
	return b.String()
}

func (m Model) field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func (m Model) renderSound(s SoundStatus) string {
	kind := "static"
	if s.Streaming {
		kind = "stream"
	}
	line := fmt.Sprintf("  %-24s %s %s / %s  %-8s %s",
		truncate(s.Name, 24),
		renderBar(s.Position, s.Duration, 20),
		formatSeconds(s.Position), formatSeconds(s.Duration),
		s.State, kind)
	if s.Error {
		return line + errorStyle.Render("  decode error")
	}
	return line
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.send(func(c *Controls) {
			select {
			case c.Quit <- struct{}{}:
			default:
			}
		})
		return m, tea.Quit
	case "up":
		m.setVolume(min(m.volume+volumeStep, maxVolume))
	case "down":
		m.setVolume(max(m.volume-volumeStep, audio.Silence))
	case "s":
		m.send(func(c *Controls) {
			select {
			case c.StopAll <- struct{}{}:
			default:
			}
		})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) setVolume(db audio.Decibels) {
	if db == m.volume {
		return
	}
	m.volume = db
	m.send(func(c *Controls) {
		select {
		case c.Volume <- db:
		default:
		}
	})
}

func (m Model) send(fn func(*Controls)) {
	if m.controls != nil {
		fn(m.controls)
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Device != "" {
		m.device = msg.Device
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
	}
	if msg.StreamState != "" {
		m.streamState = msg.StreamState
	}
	m.restarts = msg.Restarts
	if msg.RemoteAddr != "" {
		m.remoteAddr = msg.RemoteAddr
	}
	m.sounds = msg.Sounds
}

func renderBar(value, total float64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(value / total * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
