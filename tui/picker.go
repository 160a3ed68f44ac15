package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"text-expander/resolver"
)

// ResolveSession is the part of a resolve session the picker drives.
type ResolveSession interface {
	Label() string
	Result() resolver.Result
	SetFragment(fragment string) (resolver.Result, error)
}

// PickerKeys are the picker's bindings.
type PickerKeys struct {
	Commit key.Binding
	Cancel key.Binding
}

var defaultPickerKeys = PickerKeys{
	Commit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "insert")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// Picker asks for a keyword and previews the snippet it resolves to. It
// quits once the current result resolves and Enter is pressed; the caller
// then commits the session outside the alt screen.
type Picker struct {
	session  ResolveSession
	input    textinput.Model
	result   resolver.Result
	errMsg   string
	accepted bool
	styles   Styles
	keys     PickerKeys
}

// NewPicker returns a focused picker over s.
func NewPicker(s ResolveSession) Picker {
	input := textinput.New()
	input.Placeholder = "keyword"
	input.Prompt = "> "
	input.Focus()
	return Picker{
		session: s,
		input:   input,
		result:  s.Result(),
		styles:  DefaultStyles(),
		keys:    defaultPickerKeys,
	}
}

// Accepted reports whether the user confirmed a resolvable keyword.
func (p Picker) Accepted() bool { return p.accepted }

// Result is the match for the current input.
func (p Picker) Result() resolver.Result { return p.result }

func (p Picker) Init() tea.Cmd {
	return textinput.Blink
}

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, p.keys.Cancel):
			return p, tea.Quit
		case key.Matches(msg, p.keys.Commit):
			if _, ok := resolver.Resolve(p.result); !ok {
				p.errMsg = resolver.CommitMessage(p.result)
				return p, nil
			}
			p.accepted = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		res, err := p.session.SetFragment(p.input.Value())
		if err != nil {
			p.errMsg = err.Error()
			return p, cmd
		}
		p.result = res
		p.errMsg = ""
	}
	return p, cmd
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(p.styles.Title.Render(p.session.Label()))
	b.WriteString("\n\n")
	b.WriteString(p.styles.Label.Render("Insert keyword:"))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	b.WriteString(p.styles.Label.Render("Preview:"))
	b.WriteString("\n")
	b.WriteString(p.styles.Preview.Render(p.result.Preview()))
	if p.result.Kind == resolver.AmbiguousMatch {
		b.WriteString("\n")
		b.WriteString(p.styles.Help.Render(strings.Join(p.result.Candidates, "  ")))
	}
	b.WriteString("\n")
	if p.errMsg != "" {
		b.WriteString(p.styles.Error.Render(p.errMsg))
	}
	b.WriteString("\n")
	b.WriteString(p.styles.Help.Render("enter insert • esc cancel"))
	return p.styles.Frame.Render(b.String())
}
