package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and a dark terminal variant.
var (
	colorOK      = lipgloss.AdaptiveColor{Light: "#008A3E", Dark: "#00D26A"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#B07D00", Dark: "#FFB800"}
	colorFail    = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF4444"}
	colorAddress = lipgloss.AdaptiveColor{Light: "#00708A", Dark: "#00B4D8"}
	colorText    = lipgloss.AdaptiveColor{Light: "#111111", Dark: "#FFFFFF"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#5C5C5C"}
	colorFrame   = lipgloss.AdaptiveColor{Light: "#9DB4CF", Dark: "#1E3A5F"}
	colorProfile = lipgloss.AdaptiveColor{Light: "#6A2FC2", Dark: "#9B5DE5"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#C2185B", Dark: "#F15BB5"}
)

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(colorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(colorText)
	StyleMeta    = lipgloss.NewStyle().Foreground(colorDim)
	StyleProfile = lipgloss.NewStyle().Foreground(colorProfile).Bold(true)
	StyleHeader  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	StyleTitle   = StyleProfile.MarginBottom(1)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(colorAccent).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)
)

// Banner is printed by the bare `vaultctl` command.
func Banner(version string) string {
	return StyleProfile.Render("vaultctl") + " " + Meta(version) + "\n" +
		Meta("deploy, wire and exercise Horn token vaults") + "\n"
}

func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }
func Warn(msg string) string    { return StyleWarning.Render("⚠ " + msg) }
func Err(msg string) string     { return StyleError.Render("✗ " + msg) }
func Info(msg string) string    { return StyleAddress.Render("ℹ ") + msg }

// Hint suggests the next command to run.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

func Addr(a string) string        { return StyleAddress.Render(a) }
func Val(v string) string         { return StyleValue.Bold(true).Render(v) }
func Meta(m string) string        { return StyleMeta.Render(m) }
func ProfileName(p string) string { return StyleProfile.Render(p) }

// TruncateAddr shortens an address or hash to 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
