package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/syntor/forge/pkg/config"
)

// Command represents a slash command with metadata
type Command struct {
	Name        string
	Usage       string
	Description string
	Category    string // "pipeline", "workspace", "system", "template"

	// Template is the idea text of a custom command loaded from disk
	Template string
}

var categoryOrder = map[string]int{"pipeline": 0, "workspace": 1, "system": 2, "template": 3}

// CommandRegistry manages available slash commands
type CommandRegistry struct {
	commands map[string]Command
}

// NewCommandRegistry creates a registry with the built-in commands and any
// idea templates found in the config directories
func NewCommandRegistry() *CommandRegistry {
	globalDir, projectDir := config.ConfigPaths()
	return NewCommandRegistryFrom(
		filepath.Join(globalDir, "commands"),
		filepath.Join(projectDir, "commands"),
	)
}

// NewCommandRegistryFrom loads templates from dirs, later dirs overriding earlier ones
func NewCommandRegistryFrom(dirs ...string) *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[string]Command),
	}
	r.registerBuiltinCommands()
	for _, dir := range dirs {
		r.loadTemplatesFromDir(dir)
	}
	return r
}

func (r *CommandRegistry) add(category, name, usage, description string) {
	r.commands[name] = Command{Name: name, Usage: usage, Description: description, Category: category}
}

func (r *CommandRegistry) registerBuiltinCommands() {
	r.add("pipeline", "run", "/run [idea]", "Start the pipeline (optionally replacing the idea)")
	r.add("pipeline", "idea", "/idea <text>", "Replace the idea without starting")
	r.add("pipeline", "mode", "/mode <website|chatbot|prompt-refiner>", "Switch the output mode")
	r.add("pipeline", "lang", "/lang [javascript|python]", "Switch the bot language")
	r.add("pipeline", "attach", "/attach <path>", "Attach a file to every generation call")
	r.add("pipeline", "detach", "/detach [id|all]", "Remove an attachment")
	r.add("pipeline", "skip", "/skip", "Skip the clarifying questions")
	r.add("pipeline", "reset", "/reset", "Cancel the run and clear everything")
	r.add("pipeline", "entry", "/entry <n>", "Edit transcript entry n")

	r.add("workspace", "file", "/file <name>", "Select a workspace file")
	r.add("workspace", "new", "/new <name>", "Create an empty workspace file")
	r.add("workspace", "edit", "/edit", "Edit the active file")
	r.add("workspace", "export", "/export [dir]", "Write workspace files to a directory")
	r.add("workspace", "console", "/console", "Simulate running the active file")
	r.add("workspace", "copy", "/copy [n]", "Copy code block n from the transcript")

	r.add("system", "profiles", "/profiles", "Show the agent team for the mode")
	r.add("system", "status", "/status", "Show provider, model and run state")
	r.add("system", "help", "/help", "Show available commands")
	r.add("system", "clear", "/clear", "Clear system messages")
	r.add("system", "quit", "/quit", "Exit FORGE")
	r.add("system", "exit", "/exit", "Exit FORGE")
}

// loadTemplatesFromDir loads idea templates from markdown files in a directory.
// A leading "# " line is the description; the rest is the template body.
func (r *CommandRegistry) loadTemplatesFromDir(dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".md")
		if existing, ok := r.commands[name]; ok && existing.Category != "template" {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		description := "Idea template"
		body := strings.TrimSpace(string(content))
		if first, rest, _ := strings.Cut(body, "\n"); strings.HasPrefix(first, "#") {
			description = strings.TrimSpace(strings.TrimLeft(first, "#"))
			body = strings.TrimSpace(rest)
		}

		r.commands[name] = Command{
			Name:        name,
			Usage:       "/" + name + " [details]",
			Description: description,
			Category:    "template",
			Template:    body,
		}
	}
}

// GetCommand returns a command by name
func (r *CommandRegistry) GetCommand(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// GetAllCommands returns all registered commands
func (r *CommandRegistry) GetAllCommands() []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sortCommands(cmds, "")
	return cmds
}

// FilterCommands returns commands matching a prefix
func (r *CommandRegistry) FilterCommands(prefix string) []Command {
	prefix = strings.ToLower(prefix)
	cmds := make([]Command, 0)
	for _, cmd := range r.commands {
		if strings.HasPrefix(strings.ToLower(cmd.Name), prefix) {
			cmds = append(cmds, cmd)
		}
	}
	sortCommands(cmds, prefix)
	return cmds
}

func sortCommands(cmds []Command, exact string) {
	sort.Slice(cmds, func(i, j int) bool {
		if exact != "" && (cmds[i].Name == exact) != (cmds[j].Name == exact) {
			return cmds[i].Name == exact
		}
		if cmds[i].Category != cmds[j].Category {
			return categoryOrder[cmds[i].Category] < categoryOrder[cmds[j].Category]
		}
		return cmds[i].Name < cmds[j].Name
	})
}

// Expand builds the idea text for a template command
func (c Command) Expand(details string) string {
	details = strings.TrimSpace(details)
	if details == "" {
		return c.Template
	}
	if strings.Contains(c.Template, "{{details}}") {
		return strings.ReplaceAll(c.Template, "{{details}}", details)
	}
	return c.Template + "\n\n" + details
}
