package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerItem is one choice in PickItem. Value is what the caller gets back.
type PickerItem struct {
	Label    string
	SubLabel string
	Value    string
}

type pickerModel struct {
	title    string
	items    []PickerItem
	current  string
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPickerModel(title string, items []PickerItem, current string) pickerModel {
	m := pickerModel{title: title, items: items, current: current}
	for i := range items {
		if items[i].Value == current {
			m.cursor = i
			break
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m *pickerModel) move(delta int) {
	m.cursor = min(max(m.cursor+delta, 0), len(m.items)-1)
}

func (m pickerModel) choose(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.items) {
		return m, nil
	}
	item := m.items[i]
	m.cursor, m.selected = i, &item
	return m, tea.Quit
}

// Update handles arrows and vi keys, g/G for the ends, 1-9 to pick directly.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	k := key.String()
	switch k {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.move(len(m.items))
	case "enter", " ":
		return m.choose(m.cursor)
	default:
		if n, err := strconv.Atoi(k); err == nil && n >= 1 && n <= 9 {
			return m.choose(n - 1)
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	lines := []string{"", StyleTitle.Render("  " + m.title)}
	for i, it := range m.items {
		marker := "   "
		if i == m.cursor {
			marker = " ▸ "
		}
		line := fmt.Sprintf("%s%d %s", marker, i+1, StyleValue.Render(it.Label))
		if it.Value == m.current {
			line += " " + StyleSuccess.Render("(current)")
		}
		if it.SubLabel != "" {
			line += "  " + StyleMeta.Render(it.SubLabel)
		}
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		lines = append(lines, line)
	}
	help := StyleMeta.Render("  ↑↓/jk move   1-9 pick   enter select   q cancel")
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n"), "", help) + "\n"
}

// PickItem shows an interactive list and returns the chosen Value, or ""
// when the user cancels. The cursor starts on the item whose Value equals
// current.
func PickItem(title string, items []PickerItem, current string) (string, error) {
	if len(items) == 0 {
		return "", errors.New("no items to pick from")
	}
	final, err := tea.NewProgram(newPickerModel(title, items, current), tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	if m := final.(pickerModel); m.selected != nil && !m.quitting {
		return m.selected.Value, nil
	}
	return "", nil
}
