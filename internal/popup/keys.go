package popup

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/kdimtricp/deepguard/internal/workflow"
)

// keyMap defines the popup's keyboard bindings.
type keyMap struct {
	Select key.Binding
	Detect key.Binding
	Retry  key.Binding
	Change key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select file"),
		),
		Detect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "detect deepfake"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Change: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "change file"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// forState enables only the bindings the state accepts, so the help line
// never offers a command the controller would reject.
func (k keyMap) forState(s workflow.State) keyMap {
	k.Select.SetEnabled(s == workflow.Idle)
	k.Detect.SetEnabled(s == workflow.Ready)
	k.Retry.SetEnabled(s == workflow.Failed)
	k.Change.SetEnabled(s == workflow.Ready || s == workflow.Succeeded || s == workflow.Failed)
	if s == workflow.Succeeded {
		k.Change.SetHelp("c", "analyze another file")
	}
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Detect, k.Retry, k.Change, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
