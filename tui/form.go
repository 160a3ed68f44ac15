package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"text-expander/templates"
)

// AddSession is the part of an add-entry session the form drives.
type AddSession interface {
	Label() string
	AddEntry(key, snippet string) (*templates.Collection, error)
}

// FormKeys are the form's bindings.
type FormKeys struct {
	SaveContinue key.Binding
	SaveExit     key.Binding
	NextField    key.Binding
	Cancel       key.Binding
}

var defaultFormKeys = FormKeys{
	SaveContinue: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save and continue")),
	SaveExit:     key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "save and exit")),
	NextField:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
	Cancel:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "exit")),
}

// Form collects a keyword and snippet and appends them to the session's
// collection. After a successful save the fields are cleared so another
// entry can be typed.
type Form struct {
	session  AddSession
	keyInput textinput.Model
	snippet  textarea.Model
	focus    int // 0 keyword, 1 snippet
	status   string
	failed   bool
	saved    []string
	styles   Styles
	keys     FormKeys
}

// NewForm returns a form with the keyword field focused.
func NewForm(s AddSession) Form {
	keyInput := textinput.New()
	keyInput.Placeholder = "keyword"
	keyInput.Prompt = ""
	keyInput.Focus()

	snippet := textarea.New()
	snippet.Placeholder = "template text"
	snippet.ShowLineNumbers = false
	snippet.SetHeight(8)

	return Form{
		session:  s,
		keyInput: keyInput,
		snippet:  snippet,
		styles:   DefaultStyles(),
		keys:     defaultFormKeys,
	}
}

// Saved lists the keywords added while the form was open.
func (f Form) Saved() []string { return f.saved }

func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

func (f Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, f.keys.Cancel):
			return f, tea.Quit
		case key.Matches(msg, f.keys.SaveContinue):
			f.save()
			return f, nil
		case key.Matches(msg, f.keys.SaveExit):
			if f.save() {
				return f, tea.Quit
			}
			return f, nil
		case key.Matches(msg, f.keys.NextField):
			f.toggleFocus()
			return f, nil
		}
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.keyInput, cmd = f.keyInput.Update(msg)
	} else {
		f.snippet, cmd = f.snippet.Update(msg)
	}
	return f, cmd
}

// save appends the current fields and reports success.
func (f *Form) save() bool {
	k := f.keyInput.Value()
	_, err := f.session.AddEntry(k, f.snippet.Value())
	if err != nil {
		f.failed = true
		f.status = formError(err)
		return false
	}
	k = strings.TrimSpace(k)
	f.saved = append(f.saved, k)
	f.failed = false
	f.status = "Saved " + k
	f.keyInput.Reset()
	f.snippet.Reset()
	if f.focus != 0 {
		f.toggleFocus()
	}
	return true
}

func (f *Form) toggleFocus() {
	if f.focus == 0 {
		f.focus = 1
		f.keyInput.Blur()
		f.snippet.Focus()
		return
	}
	f.focus = 0
	f.snippet.Blur()
	f.keyInput.Focus()
}

func formError(err error) string {
	switch {
	case errors.Is(err, templates.ErrValidation):
		return "Insert both key and template value"
	case errors.Is(err, templates.ErrDuplicateKey):
		return "Key already present in the template"
	default:
		return err.Error()
	}
}

func (f Form) View() string {
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(f.session.Label()))
	b.WriteString("\n\n")
	b.WriteString(f.styles.Label.Render("Keyword:"))
	b.WriteString("\n")
	b.WriteString(f.keyInput.View())
	b.WriteString("\n\n")
	b.WriteString(f.styles.Label.Render("Template text:"))
	b.WriteString("\n")
	b.WriteString(f.snippet.View())
	b.WriteString("\n")
	switch {
	case f.status == "":
	case f.failed:
		b.WriteString(f.styles.Error.Render(f.status))
	default:
		b.WriteString(f.styles.Success.Render(f.status))
	}
	b.WriteString("\n")
	b.WriteString(f.styles.Help.Render("tab switch field • ctrl+s save and continue • ctrl+d save and exit • esc exit"))
	return f.styles.Frame.Render(b.String())
}
