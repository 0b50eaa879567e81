package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/primatehaven/sanctuary/pkg/keeper"
	"github.com/primatehaven/sanctuary/pkg/sanctuary"
	"github.com/primatehaven/sanctuary/pkg/telemetry"
)

const feedSize = 6

// Model is the bubbletea model of the intake desk.
type Model struct {
	ctx    context.Context
	keeper *keeper.Keeper
	events chan telemetry.Event

	form   form
	focus  focus
	cursor int

	status    string
	statusErr bool
	feed      []string

	width  int
	height int
}

type opResultMsg struct {
	op      string
	primate *sanctuary.Primate
	err     error
}

type eventMsg telemetry.Event

// New creates the model. When events is not nil the activity feed shows
// every published event.
func New(ctx context.Context, k *keeper.Keeper, events *telemetry.EventPublisher) *Model {
	m := &Model{
		ctx:    ctx,
		keeper: k,
		status: "Fill in the form and press enter to admit a primate.",
	}
	if events != nil {
		m.events = make(chan telemetry.Event, 64)
		events.Subscribe(func(e telemetry.Event) {
			select {
			case m.events <- e:
			default:
			}
		}, nil)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case eventMsg:
		m.pushFeed(telemetry.Event(msg))
		return m, m.waitForEvent()

	case opResultMsg:
		m.applyResult(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.focus = (m.focus + 1) % focusCount
		return m, nil
	case "shift+tab":
		m.focus = (m.focus + focusCount - 1) % focusCount
		return m, nil
	}

	if m.focus.isText() {
		return m.handleText(msg)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "enter":
		if m.focus != focusIsolation {
			return m, m.submit()
		}
	case "left", "h":
		m.form.cycle(m.focus, -1)
	case "right", "l":
		m.form.cycle(m.focus, 1)
	case "up", "k":
		if m.focus == focusIsolation && m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.focus == focusIsolation && m.cursor < len(m.keeper.Registry().Isolated())-1 {
			m.cursor++
		}
	case "m":
		if name, ok := m.selected(); ok {
			return m, m.run(keeper.OpMedicate, name, m.keeper.Medicate)
		}
	case "e":
		if name, ok := m.selected(); ok {
			return m, m.run(keeper.OpMoveToEnclosure, name, m.keeper.MoveToEnclosure)
		}
	}
	return m, nil
}

func (m *Model) handleText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	dst := m.form.text(m.focus)
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.submit()
	case tea.KeyBackspace:
		if r := []rune(*dst); len(r) > 0 {
			*dst = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		*dst += " "
	case tea.KeyRunes:
		*dst += string(msg.Runes)
	}
	return m, nil
}

// selected returns the name of the primate under the isolation cursor.
func (m *Model) selected() (string, bool) {
	if m.focus != focusIsolation {
		return "", false
	}
	isolated := m.keeper.Registry().Isolated()
	if len(isolated) == 0 {
		m.setStatus("No primate in isolation.", true)
		return "", false
	}
	if m.cursor >= len(isolated) {
		m.cursor = len(isolated) - 1
	}
	return isolated[m.cursor].Name(), true
}

func (m *Model) submit() tea.Cmd {
	req, err := m.form.request()
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	ctx, k := m.ctx, m.keeper
	return func() tea.Msg {
		p, err := k.Admit(ctx, req)
		return opResultMsg{op: keeper.OpAdmit, primate: p, err: err}
	}
}

func (m *Model) run(op, name string, fn func(context.Context, string) (*sanctuary.Primate, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		p, err := fn(ctx, name)
		return opResultMsg{op: op, primate: p, err: err}
	}
}

func (m *Model) applyResult(msg opResultMsg) {
	if msg.err != nil {
		m.setStatus(msg.err.Error(), true)
		return
	}

	switch msg.op {
	case keeper.OpAdmit:
		m.form.clearText()
		m.setStatus(fmt.Sprintf("%s admitted to isolation.", msg.primate.Name()), false)
	case keeper.OpMedicate:
		m.setStatus(fmt.Sprintf("%s received medical care.", msg.primate.Name()), false)
	case keeper.OpMoveToEnclosure:
		m.setStatus(fmt.Sprintf("%s moved to the %s enclosure.", msg.primate.Name(), msg.primate.Species()), false)
	}

	if n := len(m.keeper.Registry().Isolated()); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	} else if n == 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) pushFeed(e telemetry.Event) {
	line := fmt.Sprintf("%s %s", e.Timestamp.Format("15:04:05"), e.Message)
	m.feed = append(m.feed, line)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, k *keeper.Keeper, events *telemetry.EventPublisher) error {
	p := tea.NewProgram(New(ctx, k, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
