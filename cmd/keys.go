package cmd

import "github.com/charmbracelet/bubbles/key"

type helpKeyMap struct {
	togglePlay   key.Binding
	previousSong key.Binding
	nextSong     key.Binding
	quit         key.Binding
}

var helpKeys = helpKeyMap{
	togglePlay: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space/p", "play/pause"),
	),
	previousSong: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "previous song"),
	),
	nextSong: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "next song"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "quit"),
	),
}

func (k helpKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.togglePlay, k.previousSong, k.nextSong, k.quit}
}
func (k helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.togglePlay},
		{k.previousSong, k.nextSong},
		{k.quit},
	}
}
