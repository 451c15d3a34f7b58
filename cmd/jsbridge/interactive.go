package main

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/js-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D3D3D3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxTranscript = 200

// syncBuffer collects console and host output produced while a line runs.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

type entryKind int

const (
	entryInput entryKind = iota
	entryResult
	entryLog
	entryError
)

type entry struct {
	text string
	kind entryKind
}

type interactiveModel struct {
	err        error
	rt         *runtime.Runtime
	ctx        *runtime.Context
	out        *syncBuffer
	opts       options
	input      textinput.Model
	transcript []entry
	history    []string
	histIdx    int
	running    bool
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
	ctx *runtime.Context
}

type evalResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(opts options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "host.add(1)"
	ti.Prompt = "> "
	ti.Width = 80
	ti.Focus()
	return &interactiveModel{
		opts:  opts,
		out:   &syncBuffer{},
		input: ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load)
}

func (m *interactiveModel) load() tea.Msg {
	rt, err := newRuntime(m.opts, newLogger(m.out, m.opts.verbose))
	if err != nil {
		return loadedMsg{err: err}
	}
	ctx, err := rt.NewContext()
	if err != nil {
		_ = rt.Close()
		return loadedMsg{err: err}
	}
	if err := ctx.SetVariable("host", newSandbox(m.out)); err != nil {
		_ = rt.Close()
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt, ctx: ctx}
}

func (m *interactiveModel) eval(src string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.ctx.ExecuteNamed(src, "repl")
		if err != nil {
			return evalResultMsg{err: err}
		}
		return evalResultMsg{result: formatValue(v)}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.running {
				m.rt.Terminate()
				return m, nil
			}
			if m.rt != nil {
				_ = m.rt.Close()
			}
			return m, tea.Quit

		case "ctrl+d":
			if m.input.Value() == "" {
				if m.rt != nil {
					_ = m.rt.Close()
				}
				return m, tea.Quit
			}

		case "enter":
			src := strings.TrimSpace(m.input.Value())
			if src == "" || m.running || m.ctx == nil {
				return m, nil
			}
			m.history = append(m.history, src)
			m.histIdx = len(m.history)
			m.push(entry{text: src, kind: entryInput})
			m.input.SetValue("")
			m.running = true
			return m, m.eval(src)

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			return m, nil

		case "esc":
			m.input.SetValue("")
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.ctx = msg.ctx

	case evalResultMsg:
		m.running = false
		if logs := strings.TrimRight(m.out.drain(), "\n"); logs != "" {
			m.push(entry{text: logs, kind: entryLog})
		}
		if msg.err != nil {
			m.push(entry{text: msg.err.Error(), kind: entryError})
		} else {
			m.push(entry{text: msg.result, kind: entryResult})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) push(e entry) {
	m.transcript = append(m.transcript, e)
	if n := len(m.transcript); n > maxTranscript {
		m.transcript = m.transcript[n-maxTranscript:]
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.ctx == nil {
		return "Starting engine..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("JS Bridge"))
	b.WriteString(" ")
	b.WriteString(m.opts.mode.String())
	b.WriteString(" mode\n\n")

	for _, e := range m.transcript {
		switch e.kind {
		case entryInput:
			b.WriteString(inputStyle.Render("> " + e.text))
		case entryResult:
			b.WriteString(resultStyle.Render(e.text))
		case entryLog:
			b.WriteString(logStyle.Render(e.text))
		case entryError:
			b.WriteString(errorStyle.Render(e.text))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.running {
		b.WriteString(helpStyle.Render("running • ctrl+c terminate"))
	} else {
		b.WriteString(helpStyle.Render("enter evaluate • ↑/↓ history • esc clear • ctrl+c quit"))
	}
	return b.String()
}

func runInteractive(opts options) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
