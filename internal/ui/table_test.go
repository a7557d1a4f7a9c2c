package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlock(t *testing.T) {
	result := KeyValueBlock("Deployment", [][2]string{
		{"Token", "0x901727dF7F255100aa7cF73b160085f5843c373C"},
		{"Vault", "0x00000000000000000000000000000000000000aa"},
		{"Block", "12"},
	})
	assert.Contains(t, result, "Deployment")
	assert.Contains(t, result, "0x901727dF7F255100aa7cF73b160085f5843c373C")

	iToken := strings.Index(result, "Token")
	iVault := strings.Index(result, "Vault")
	iBlock := strings.Index(result, "Block")
	require.Greater(t, iToken, -1)
	assert.Less(t, iToken, iVault)
	assert.Less(t, iVault, iBlock)

	// lipgloss RoundedBorder corners
	assert.Contains(t, result, "╭")
	assert.Contains(t, result, "╰")
}

func TestKeyValueBlockEmptyTitle(t *testing.T) {
	result := KeyValueBlock("", [][2]string{{"Key", "Value"}})
	assert.Contains(t, result, "Key")
	assert.Contains(t, result, "Value")
}

func TestNewTable(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Profile", Width: 16}, {Title: "Chain", Width: 8}})
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
}

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Role", Width: 12},
		{Title: "Held", Width: 5},
	})
	tbl.AddRow(Row{"MINTER_ROLE", Mark(true)})
	tbl.AddRow(Row{"BURNER_ROLE", Mark(false)})

	result := tbl.Render()
	assert.Contains(t, result, "Role")
	assert.Contains(t, result, "------------")
	assert.Contains(t, result, "MINTER_ROLE")
	assert.Contains(t, result, "✓")
	assert.Contains(t, result, "✗")
	assert.Less(t, strings.Index(result, "MINTER_ROLE"), strings.Index(result, "BURNER_ROLE"))
}

func TestTableRenderShortRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "A", Width: 5}, {Title: "B", Width: 5}, {Title: "C", Width: 5}})
	tbl.AddRow(Row{"only1"})
	tbl.AddRow(Row{"row1", "x", "y"})

	result := tbl.Render()
	assert.Contains(t, result, "only1")
	assert.Contains(t, result, "row1")
}

func TestTableFitWidth(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Profile"}, {Title: "Chain", Width: 6}})
	tbl.AddRow(Row{"presale-sepolia", "11155111"})

	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], strings.Repeat("-", len("presale-sepolia"))+" ------")
	assert.Contains(t, lines[2], "presale-sepolia 11155…")
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab   ", pad("ab", 5))
	assert.Equal(t, "abcde", pad("abcde", 5))
	assert.Equal(t, "ab…", pad("abcdef", 3))
	assert.Equal(t, "✓ ", pad("✓", 2))
	assert.Equal(t, "", pad("x", 0))

	styled := "\x1b[1m" + "ok" + "\x1b[0m"
	assert.Equal(t, styled+"   ", pad(styled, 5), "escape codes take no width")
}

func TestBanner(t *testing.T) {
	result := Banner("v0.3.0")
	assert.Contains(t, result, "vaultctl")
	assert.Contains(t, result, "v0.3.0")
}
