package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/syntor/forge/pkg/models"
)

// Banner colors - gradient from ember to ash
var (
	bannerColor1 = lipgloss.Color("#fb923c")
	bannerColor2 = lipgloss.Color("#f97316")
	bannerColor3 = lipgloss.Color("#ea580c")
	bannerColor4 = lipgloss.Color("#c2410c")
	bannerColor5 = lipgloss.Color("#9a3412")
	bannerDim    = lipgloss.Color("#78716c")
)

const bannerArtWidth = 41

var bannerArt = []string{
	"███████╗ ██████╗ ██████╗  ██████╗ ███████╗",
	"██╔════╝██╔═══██╗██╔══██╗██╔════╝ ██╔════╝",
	"█████╗  ██║   ██║██████╔╝██║  ███╗█████╗  ",
	"██╔══╝  ██║   ██║██╔══██╗██║   ██║██╔══╝  ",
	"██║     ╚██████╔╝██║  ██║╚██████╔╝███████╗",
	"╚═╝      ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚══════╝",
}

// GetStartupBanner returns the styled ASCII art banner
func GetStartupBanner(version string, width int) string {
	if width < 60 {
		width = 60
	}

	colors := []lipgloss.Color{bannerColor1, bannerColor2, bannerColor3, bannerColor4, bannerColor5, bannerDim}
	padding := (width - bannerArtWidth) / 2
	if padding < 0 {
		padding = 0
	}
	padStr := strings.Repeat(" ", padding)

	var sb strings.Builder
	sb.WriteString("\n")
	for i, line := range bannerArt {
		style := lipgloss.NewStyle().Foreground(colors[i])
		if i < 5 {
			style = style.Bold(true)
		}
		sb.WriteString(padStr + style.Render(line) + "\n")
	}
	sb.WriteString("\n")

	dim := lipgloss.NewStyle().Foreground(bannerDim)
	sb.WriteString(centerText(dim.Render("Multi-Agent Content Generator"), width) + "\n")
	sb.WriteString(centerText(dim.Render(version), width) + "\n")
	return sb.String()
}

// GetModernHeader returns the one-line header with the mode badge
func GetModernHeader(st Styles, mode models.Mode, lang models.BotLanguage, width int) string {
	if width < 40 {
		width = 40
	}

	logo := st.Header.Render("◈ FORGE")
	label := mode.Info().Label
	if mode == models.ModeChatbot {
		label = fmt.Sprintf("%s · %s", label, lang)
	}
	badge := st.HeaderMode.Render(label)
	info := st.HeaderInfo.Render(mode.Info().Description)

	lineWidth := width - lipgloss.Width(logo) - lipgloss.Width(badge) - lipgloss.Width(info) - 4
	if lineWidth < 2 {
		return fmt.Sprintf("%s %s", logo, badge)
	}
	line := lipgloss.NewStyle().Foreground(bannerDim).Render(strings.Repeat("─", lineWidth))
	return fmt.Sprintf("%s %s %s %s", logo, line, badge, info)
}

// centerText centers text within a given width
func centerText(text string, width int) string {
	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}
	return strings.Repeat(" ", (width-textWidth)/2) + text
}

// GetWelcomeMessage returns the hint shown under the banner
func GetWelcomeMessage() string {
	style := lipgloss.NewStyle().Foreground(bannerDim)
	lines := []string{
		"",
		style.Render("  Describe your idea below and press Ctrl+S to start the team"),
		style.Render("  Tab cycles the mode, Ctrl+L switches the bot language"),
		style.Render("  Type / for commands, /help for the full list"),
		"",
	}
	return strings.Join(lines, "\n")
}
