// Package profile is the agent profile registry: a pure lookup from a role and
// output mode to the persona's display data and steering instruction.
package profile

import (
	"fmt"

	"github.com/syntor/forge/pkg/models"
)

// Profile describes a role as it appears under one mode
type Profile struct {
	Role        models.Role `json:"role" yaml:"role"`
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Instruction string      `json:"instruction" yaml:"instruction"`
}

type persona struct {
	name        string
	title       string
	description string
}

// sequence is the automatic run order. CRITIC only exists in the table.
var sequence = []models.Role{
	models.RoleProductOwner,
	models.RoleMechanic,
	models.RoleInnovator,
	models.RoleTechLead,
	models.RoleDesigner,
	models.RoleQAEngineer,
	models.RoleSynthesizer,
}

var allRoles = append(append([]models.Role{}, sequence...), models.RoleCritic)

var personas = map[models.Mode]map[models.Role]persona{
	models.ModeWebsite: {
		models.RoleProductOwner: {"CREATIVE_DIR", "Creative Lead", "3D Concept"},
		models.RoleMechanic:     {"ARCHITECT", "Structure", "DOM & Canvas"},
		models.RoleInnovator:    {"DESIGNER", "UI/UX", "Visuals & HUD"},
		models.RoleTechLead:     {"WEBGL", "WebGL Lead", "Three.js Logic"},
		models.RoleDesigner:     {"FX_ARTIST", "Shaders", "Post-Process"},
		models.RoleQAEngineer:   {"PERF", "Performance", "FPS Check"},
		models.RoleSynthesizer:  {"DEVELOPER", "Coder", "Final Code"},
		models.RoleCritic:       {"BROWSER", "Renderer", "Visual Check"},
	},
	models.ModeChatbot: {
		models.RoleProductOwner: {"ADMIN", "Bot Owner", "Utility Def"},
		models.RoleMechanic:     {"LOGIC", "Flow Engineer", "State Machine"},
		models.RoleInnovator:    {"ENGAGE", "Interaction Lead", "Gamification"},
		models.RoleTechLead:     {"BACKEND", "System Architect", "API & Setup"},
		models.RoleDesigner:     {"WRITER", "UX Writer", "Copy & Tone"},
		models.RoleQAEngineer:   {"TESTER", "QA", "Scenario Tests"},
		models.RoleSynthesizer:  {"DEVELOPER", "Coder", "Final Bot Code"},
		models.RoleCritic:       {"MOD", "Reviewer", "Limits Check"},
	},
	models.ModePromptRefiner: {
		models.RoleProductOwner: {"STRATEGIST", "Prompt Lead", "Intent Analysis"},
		models.RoleMechanic:     {"STRUCTURE", "Architect", "Prompt Format"},
		models.RoleInnovator:    {"CREATIVE", "Writer", "Word Choice"},
		models.RoleTechLead:     {"LOGIC", "System Logic", "Constraints"},
		models.RoleDesigner:     {"STYLE", "Stylist", "Tone & Voice"},
		models.RoleQAEngineer:   {"TESTER", "Simulate", "Test Run"},
		models.RoleSynthesizer:  {"MASTER", "Optimizer", "Final Prompt"},
		models.RoleCritic:       {"USER", "User Proxy", "Clarity Check"},
	},
}

func init() {
	if err := validateTable(); err != nil {
		panic(err)
	}
}

// validateTable checks that every role has a persona under every mode
func validateTable() error {
	for _, mode := range models.Modes {
		table, ok := personas[mode]
		if !ok {
			return fmt.Errorf("profile: no personas for mode %s", mode)
		}
		for _, role := range allRoles {
			if _, ok := table[role]; !ok {
				return fmt.Errorf("profile: no persona for %s in mode %s", role, mode)
			}
		}
	}
	return nil
}

// Lookup returns the profile for role under mode. lang only affects chatbot instructions.
func Lookup(role models.Role, mode models.Mode, lang models.BotLanguage) Profile {
	p := personas[mode][role]
	return Profile{
		Role:        role,
		Name:        p.name,
		Title:       p.title,
		Description: p.description,
		Instruction: instruction(role, mode, lang, p),
	}
}

// Sequence returns the fixed automatic pipeline order
func Sequence() []models.Role {
	out := make([]models.Role, len(sequence))
	copy(out, sequence)
	return out
}

// All returns every role known to the registry
func All() []models.Role {
	out := make([]models.Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Label formats a profile as "NAME (Title)" for transcripts
func (p Profile) Label() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Title)
}
