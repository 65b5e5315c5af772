package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spf13/afero"

	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/logtail"
	"github.com/five82/inkreader/internal/prefs"
	"github.com/five82/inkreader/internal/state"
)

// Buttons receives simulated button taps.
type Buttons interface {
	Tap(b input.Button)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Screen    *Sink
	Buttons   Buttons
	DeviceID  string
	LogPath   string   // tailed under the panel when set
	LogFS     afero.Fs // nil means the OS filesystem
	PrefsPath string // theme and help choices are loaded from and saved here when set
	PollTick  time.Duration
	ThemeName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	store     *state.Store
	screen    *Sink
	buttons   Buttons
	deviceID  string
	logPath   string
	logFS     afero.Fs
	logLines  int
	prefsPath string
	pollTick  time.Duration

	theme  Theme
	keys   keyMap
	help   help.Model
	width  int
	height int

	snapshot state.Snapshot
	shown    Screen
	logs     []string
	lastTap  input.Button
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = 100 * time.Millisecond
	}

	logFS := opts.LogFS
	if logFS == nil {
		logFS = afero.NewOsFs()
	}

	saved := prefs.Default()
	if opts.PrefsPath != "" {
		saved = prefs.Load(opts.PrefsPath)
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = saved.Theme
	}

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		screen:    opts.Screen,
		buttons:   opts.Buttons,
		deviceID:  opts.DeviceID,
		logPath:   opts.LogPath,
		logFS:     logFS,
		logLines:  saved.LogLines,
		prefsPath: opts.PrefsPath,
		pollTick:  pollTick,
		theme:     GetTheme(themeName),
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	m.help.ShowAll = saved.FullHelp
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.refreshCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(m.pollTick), m.refreshCmd())

	case refreshMsg:
		m.snapshot = msg.snapshot
		m.shown = msg.screen
		if msg.logs != nil {
			m.logs = msg.logs
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Left):
		return m.tap(input.Left)
	case key.Matches(msg, m.keys.Middle):
		return m.tap(input.Middle)
	case key.Matches(msg, m.keys.Right):
		return m.tap(input.Right)
	}
	return m, nil
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:    m.theme.Name,
		FullHelp: m.help.ShowAll,
		LogLines: m.logLines,
	})
}

func (m Model) tap(b input.Button) (tea.Model, tea.Cmd) {
	m.lastTap = b
	if m.buttons != nil {
		m.buttons.Tap(b)
	}
	return m, nil
}

// Messages

type tickMsg time.Time

type refreshMsg struct {
	snapshot state.Snapshot
	screen   Screen
	logs     []string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	store, screen := m.store, m.screen
	logFS, logPath, logLines := m.logFS, m.logPath, m.logLines
	return func() tea.Msg {
		var msg refreshMsg
		if store != nil {
			msg.snapshot = store.Snapshot()
		}
		if screen != nil {
			msg.screen = screen.Screen()
		}
		if logPath != "" && logLines > 0 {
			// A log that cannot be read just leaves the previous lines up.
			msg.logs, _ = logtail.Read(logFS, logPath, logLines)
		}
		return msg
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("ui requires a state store")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
