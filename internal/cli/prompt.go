package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var errPromptCancelled = errors.New("cancelled")

// secretModel reads one line without echoing it.
type secretModel struct {
	input     textinput.Model
	done      bool
	cancelled bool
}

func newSecretModel(label string) secretModel {
	ti := textinput.New()
	ti.Prompt = label + ": "
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()
	return secretModel{input: ti}
}

func (m secretModel) Init() tea.Cmd { return textinput.Blink }

func (m secretModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m secretModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.input.View() + "\n"
}

type confirmFocus int

const (
	focusCancel confirmFocus = iota
	focusConfirm
)

// confirmModel asks a yes/no question. Cancel has focus first.
type confirmModel struct {
	title        string
	body         string
	confirmLabel string
	cancelLabel  string
	focus        confirmFocus
	answered     bool
	yes          bool
}

func newConfirmModel(title, body, confirmLabel, cancelLabel string) confirmModel {
	return confirmModel{
		title:        title,
		body:         body,
		confirmLabel: confirmLabel,
		cancelLabel:  cancelLabel,
	}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		return m.answer(true)
	case "n", "N", "esc", "ctrl+c", "q":
		return m.answer(false)
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.focus == focusCancel {
			m.focus = focusConfirm
		} else {
			m.focus = focusCancel
		}
	case "enter":
		return m.answer(m.focus == focusConfirm)
	}
	return m, nil
}

func (m confirmModel) answer(yes bool) (tea.Model, tea.Cmd) {
	m.answered = true
	m.yes = yes
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}

	btn := lipgloss.NewStyle().Padding(0, 1)
	active := btn.Reverse(true).Bold(true)

	confirm, cancel := btn.Render(m.confirmLabel), btn.Render(m.cancelLabel)
	if m.focus == focusConfirm {
		confirm = active.Render(m.confirmLabel)
	} else {
		cancel = active.Render(m.cancelLabel)
	}

	return strings.Join([]string{
		styleHeader.Render(m.title),
		m.body,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, cancel, " ", confirm),
		styleMuted.Render("y/n, tab: focus, enter: select"),
		"",
	}, "\n")
}

// promptSecret runs a secret prompt on the command's terminal.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	final, err := tea.NewProgram(newSecretModel(label),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	).Run()
	if err != nil {
		return "", err
	}
	m := final.(secretModel)
	if m.cancelled {
		return "", errPromptCancelled
	}
	return m.input.Value(), nil
}

// promptConfirm runs a yes/no prompt on the command's terminal.
func promptConfirm(cmd *cobra.Command, title, body, confirmLabel, cancelLabel string) (bool, error) {
	final, err := tea.NewProgram(newConfirmModel(title, body, confirmLabel, cancelLabel),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	).Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).yes, nil
}
