// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines keyboard bindings for the chat screen and the session
// history overlay.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit          key.Binding
	CycleTeam       key.Binding
	History         key.Binding
	NewSession      key.Binding
	CopyAnswer      key.Binding
	ToggleLog       key.Binding
	ToggleReasoning key.Binding
	PageUp          key.Binding
	PageDown        key.Binding
	Dismiss         key.Binding
	Quit            key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "envoyer"),
		),
		CycleTeam: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "équipe"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+h", "f2"),
			key.WithHelp("C-h", "historique"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "nouvelle session"),
		),
		CopyAnswer: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copier"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "journal"),
		),
		ToggleReasoning: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "raisonnement"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "haut"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "bas"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "masquer l'alerte"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quitter"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.CycleTeam, k.History, k.NewSession, k.CopyAnswer, k.Quit}
}

// FullHelp returns every binding, grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.CycleTeam, k.NewSession},
		{k.History, k.CopyAnswer, k.ToggleLog, k.ToggleReasoning},
		{k.PageUp, k.PageDown, k.Dismiss, k.Quit},
	}
}

// =============================================================================
// HISTORY OVERLAY KEYS
// =============================================================================

// HistoryKeyMap defines the bindings active while the history overlay is open.
type HistoryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Load   key.Binding
	Delete key.Binding
	Export key.Binding
	Close  key.Binding
}

// DefaultHistoryKeyMap returns the default history overlay bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "précédente"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "suivante"),
		),
		Load: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "ouvrir"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "supprimer"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export PDF"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "ctrl+h", "f2"),
			key.WithHelp("Esc", "fermer"),
		),
	}
}

// ShortHelp returns the bindings shown under the overlay.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Load, k.Delete, k.Export, k.Close}
}

// FullHelp returns the overlay bindings as one column.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
