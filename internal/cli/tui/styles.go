package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/syntor/forge/pkg/models"
)

// Colors - ember on charcoal
var (
	primaryColor   = lipgloss.Color("#f97316") // Forge orange
	secondaryColor = lipgloss.Color("#78716c") // Warm gray
	successColor   = lipgloss.Color("#22c55e")
	errorColor     = lipgloss.Color("#ef4444")
	warningColor   = lipgloss.Color("#eab308")
	accentColor    = lipgloss.Color("#38bdf8") // Sky

	textColor  = lipgloss.Color("#e7e5e4")
	mutedText  = lipgloss.Color("#d6d3d1")
	bgPrimary  = lipgloss.Color("#0c0a09")
	bgSelected = lipgloss.Color("#292524")
)

var lineNumbers = lipgloss.NewStyle().Foreground(secondaryColor)

// roleColors gives every persona its own badge color
var roleColors = map[models.Role]lipgloss.Color{
	models.RoleProductOwner: lipgloss.Color("#a78bfa"),
	models.RoleMechanic:     lipgloss.Color("#94a3b8"),
	models.RoleInnovator:    lipgloss.Color("#f472b6"),
	models.RoleTechLead:     lipgloss.Color("#38bdf8"),
	models.RoleDesigner:     lipgloss.Color("#facc15"),
	models.RoleQAEngineer:   lipgloss.Color("#4ade80"),
	models.RoleSynthesizer:  lipgloss.Color("#f97316"),
	models.RoleCritic:       lipgloss.Color("#ef4444"),
}

// Styles defines all the visual styles for the TUI
type Styles struct {
	// Header
	Header     lipgloss.Style
	HeaderMode lipgloss.Style
	HeaderInfo lipgloss.Style

	// Panes
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style

	// Transcript
	RoleBadge     lipgloss.Style
	RoleTitle     lipgloss.Style
	EntryText     lipgloss.Style
	SystemMessage lipgloss.Style

	// Input
	InputPrompt    lipgloss.Style
	QuizQuestion   lipgloss.Style
	QuizProgress   lipgloss.Style
	InputSeparator lipgloss.Style

	// Autocomplete
	SuggestionBox      lipgloss.Style
	SuggestionItem     lipgloss.Style
	SuggestionSelected lipgloss.Style
	SuggestionDesc     lipgloss.Style

	// Workspace
	FileTab       lipgloss.Style
	FileTabActive lipgloss.Style

	// Console
	ConsoleInfo    lipgloss.Style
	ConsoleError   lipgloss.Style
	ConsoleSuccess lipgloss.Style
	ConsoleCommand lipgloss.Style
	ConsoleTime    lipgloss.Style

	// Status bar
	StatusBar     lipgloss.Style
	StatusRole    lipgloss.Style
	StatusModel   lipgloss.Style
	StatusRunning lipgloss.Style

	// Help bar
	HelpBar  lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Code blocks
	CodeBlock     lipgloss.Style
	CodeBlockLang lipgloss.Style
	CodeBlockCopy lipgloss.Style

	// General
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns the default style configuration
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor),

		HeaderMode: lipgloss.NewStyle().
			Bold(true).
			Foreground(bgPrimary).
			Background(primaryColor).
			Padding(0, 1),

		HeaderInfo: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor),

		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor),

		PaneTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor),

		RoleBadge: lipgloss.NewStyle().
			Bold(true).
			Foreground(bgPrimary).
			Padding(0, 1),

		RoleTitle: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true),

		EntryText: lipgloss.NewStyle().
			Foreground(mutedText),

		SystemMessage: lipgloss.NewStyle().
			Italic(true).
			Foreground(secondaryColor),

		InputPrompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor),

		QuizQuestion: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),

		QuizProgress: lipgloss.NewStyle().
			Foreground(secondaryColor),

		InputSeparator: lipgloss.NewStyle().
			Foreground(secondaryColor),

		SuggestionBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1),

		SuggestionItem: lipgloss.NewStyle().
			Foreground(mutedText).
			Padding(0, 1),

		SuggestionSelected: lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(bgPrimary).
			Bold(true).
			Padding(0, 1),

		SuggestionDesc: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true),

		FileTab: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Padding(0, 1),

		FileTabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(bgSelected).
			Padding(0, 1),

		ConsoleInfo: lipgloss.NewStyle().
			Foreground(mutedText),

		ConsoleError: lipgloss.NewStyle().
			Foreground(errorColor),

		ConsoleSuccess: lipgloss.NewStyle().
			Foreground(successColor),

		ConsoleCommand: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),

		ConsoleTime: lipgloss.NewStyle().
			Foreground(secondaryColor),

		StatusBar: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Background(bgSelected).
			Padding(0, 1),

		StatusRole: lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor),

		StatusModel: lipgloss.NewStyle().
			Foreground(secondaryColor),

		StatusRunning: lipgloss.NewStyle().
			Foreground(warningColor).
			Italic(true),

		HelpBar: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Padding(0, 1),

		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor),

		HelpDesc: lipgloss.NewStyle().
			Foreground(secondaryColor),

		CodeBlock: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1),

		CodeBlockLang: lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true),

		CodeBlockCopy: lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor),

		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor),

		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(warningColor),
	}
}

// Badge renders a role name in the role's color
func (s Styles) Badge(role models.Role, label string) string {
	color, ok := roleColors[role]
	if !ok {
		color = secondaryColor
	}
	return s.RoleBadge.Background(color).Render(label)
}

// ConsoleStyle picks the style for a console line kind
func (s Styles) ConsoleStyle(kind models.LineKind) lipgloss.Style {
	switch kind {
	case models.LineError:
		return s.ConsoleError
	case models.LineSuccess:
		return s.ConsoleSuccess
	case models.LineCommand:
		return s.ConsoleCommand
	}
	return s.ConsoleInfo
}
