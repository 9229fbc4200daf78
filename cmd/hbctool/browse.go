package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// listHeight is the number of function rows shown before the list scrolls.
const listHeight = 20

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <bundle>",
		Short: "Browse the functions of a bytecode file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminalIO() {
				return fmt.Errorf("browse needs an interactive terminal")
			}
			return runBrowser(args[0])
		},
	}
}

type browserState int

const (
	stateList browserState = iota
	stateFilter
	stateFunction
)

type funcEntry struct {
	index        int
	name         string
	params       uint32
	instructions int
	size         uint32
}

type browserModel struct {
	err      error
	module   *hbc.Module
	text     map[string][]byte
	filename string
	funcs    []funcEntry
	visible  []int
	filter   textinput.Model
	view     viewport.Model
	selected int
	width    int
	height   int
	state    browserState
}

type loadedMsg struct {
	err    error
	module *hbc.Module
	text   map[string][]byte
}

// memDir collects directory-form files in memory.
type memDir map[string][]byte

func (d memDir) WriteFile(name string, data []byte) error {
	d[name] = data
	return nil
}

func newBrowserModel(filename string) *browserModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "function name"
	ti.Width = 40
	return &browserModel{
		filename: filename,
		filter:   ti,
		view:     viewport.New(80, listHeight),
		width:    80,
		height:   listHeight + 6,
	}
}

func (m *browserModel) Init() tea.Cmd {
	return m.load
}

func (m *browserModel) load() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := hbc.Decode(data)
	if err != nil {
		return loadedMsg{err: err}
	}
	dir := memDir{}
	if err := hasm.RenderDir(mod, dir); err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{module: mod, text: dir}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-5, 1)
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.module = msg.module
		m.text = msg.text
		m.funcs = make([]funcEntry, len(msg.module.Functions))
		for i := range msg.module.Functions {
			f := &msg.module.Functions[i]
			m.funcs[i] = funcEntry{
				index:        i,
				name:         m.str(f.Name),
				params:       f.ParamCount,
				instructions: len(f.Instructions),
				size:         f.CodeSize(),
			}
		}
		m.applyFilter()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "enter":
			if m.state == stateList && len(m.visible) > 0 {
				idx := m.visible[m.selected]
				m.view.SetContent(string(m.text[hasm.FunctionFile(idx)]))
				m.view.GotoTop()
				m.state = stateFunction
				return m, nil
			}

		case "esc":
			if m.state == stateFunction {
				m.state = stateList
				return m, nil
			}
		}
	}

	if m.state == stateFunction {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.state = stateList
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browserModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, f := range m.funcs {
		if q == "" || strings.Contains(strings.ToLower(f.name), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) str(idx uint32) string {
	if int(idx) < len(m.module.Strings) {
		return m.module.Strings[idx]
	}
	return fmt.Sprintf("s%d", idx)
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.module == nil {
		return "Loading bytecode..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("HBC Browser"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(typeStyle.Render(fmt.Sprintf("  v%d, %d functions, %d strings",
		m.module.Version, len(m.module.Functions), len(m.module.Strings))))
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		rows := max(m.height-6, 1)
		start := 0
		if m.selected >= rows {
			start = m.selected - rows + 1
		}
		for i := start; i < len(m.visible) && i < start+rows; i++ {
			line := m.formatFunc(m.funcs[m.visible[i]])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("  no matching functions\n"))
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(m.filter.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter apply • esc done"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter show • / filter • q quit"))
		}

	case stateFunction:
		f := m.funcs[m.visible[m.selected]]
		b.WriteString(fmt.Sprintf("%s\n", funcStyle.Render(fmt.Sprintf("f%d %s", f.index, f.name))))
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("↑/↓ scroll • esc back • q quit  %3.f%%", m.view.ScrollPercent()*100)))
	}
	return b.String()
}

func (m *browserModel) formatFunc(f funcEntry) string {
	name := f.name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s %s %s",
		typeStyle.Render(fmt.Sprintf("f%-5d", f.index)),
		funcStyle.Render(name),
		helpStyle.Render(fmt.Sprintf("params=%d instructions=%d bytes=%d", f.params, f.instructions, f.size)))
}

func runBrowser(filename string) error {
	p := tea.NewProgram(newBrowserModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
