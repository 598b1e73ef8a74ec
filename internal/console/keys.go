package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type KeyMap struct {
	Start     key.Binding
	Language  key.Binding
	Scenario  key.Binding
	More      key.Binding
	Fewer     key.Binding
	Submit    key.Binding
	Edit      key.Binding
	Hint      key.Binding
	Vocab     key.Binding
	End       key.Binding
	Report    key.Binding
	Restart   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var Keys = KeyMap{
	Start: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "start"),
	),
	Language: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "language"),
	),
	Scenario: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "scenario"),
	),
	More: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+/-", "questions"),
	),
	Fewer: key.NewBinding(
		key.WithKeys("-"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "answer"),
	),
	Edit: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("C-e", "redo answer"),
	),
	Hint: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "hints"),
	),
	Vocab: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("C-v", "vocabulary"),
	),
	End: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "end"),
	),
	Report: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "report"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}

func helpLine(bindings ...key.Binding) string {
	var parts []string
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return HelpStyle.Render("  " + strings.Join(parts, "  "))
}
