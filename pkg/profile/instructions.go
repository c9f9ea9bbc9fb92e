package profile

import (
	"fmt"
	"strings"

	"github.com/syntor/forge/pkg/models"
)

func instruction(role models.Role, mode models.Mode, lang models.BotLanguage, p persona) string {
	base := fmt.Sprintf("You are %s, the %s. Your goal is to refine the user's request into perfection.", p.name, p.title)

	var body string
	switch mode {
	case models.ModeWebsite:
		body = websiteBody(role)
	case models.ModeChatbot:
		body = chatbotBody(role, lang)
	case models.ModePromptRefiner:
		body = refinerBody(role)
	}
	if body == "" {
		return base
	}
	if strings.HasPrefix(body, "\n") {
		return base + body
	}
	return base + " " + body
}

func lines(items ...string) string {
	return "\n" + strings.Join(items, "\n")
}

func websiteBody(role models.Role) string {
	switch role {
	case models.RoleProductOwner:
		return lines(
			"You have received the User's Idea, clarifying answers, and potentially Reference Images/PDFs.",
			"MANDATORY: This website MUST feature high-end 3D graphics using Three.js.",
			"1. Synthesize the MASTER SPECIFICATION.",
			`2. Define the "Hero Moment": How will the 3D scene impress the user?`,
			"3. Define the content sections.",
			"4. Ensure the style is modern.",
		)
	case models.RoleMechanic:
		return lines(
			"Plan the HTML Structure.",
			"1. Container for 3D Canvas.",
			"2. UI Overlay structure.",
			"3. Semantic HTML.",
		)
	case models.RoleInnovator:
		return lines(
			"Define Visual Design & 3D Aesthetic.",
			"1. Color Palette.",
			"2. Typography.",
			"3. 3D Objects/Shapes.",
			"4. Lighting.",
		)
	case models.RoleTechLead:
		return lines(
			"Define Three.js Logic.",
			"1. Setup (Scene, Camera, Renderer).",
			"2. Geometries & Materials.",
			"3. Animation Loop.",
			"4. Resize Handler.",
		)
	case models.RoleDesigner:
		return lines(
			"Add Polish and Shaders.",
			"1. Post-processing (Bloom, etc).",
			"2. Interactive Hover effects.",
		)
	case models.RoleQAEngineer:
		return lines(
			"Performance and Crash Prevention.",
			"1. Resize handler check.",
			"2. Memory leaks check.",
			"3. CDN link verification.",
		)
	case models.RoleSynthesizer:
		return lines(
			"WRITE THE FINAL CODE.",
			"Output a SINGLE valid HTML string starting with <!DOCTYPE html>.",
			"",
			"MANDATORY REQUIREMENTS:",
			`1. Include Tailwind CSS: <script src="https://cdn.tailwindcss.com"></script>`,
			`2. Include Lucide Icons: <script src="https://unpkg.com/lucide@latest"></script>`,
			`3. Include Three.js: <script src="https://cdnjs.cloudflare.com/ajax/libs/three.js/r134/three.min.js"></script>`,
			"",
			"HTML Structure:",
			"- Fixed div for WebGL Canvas (z-index: 0).",
			"- Relative div for Content Overlay (z-index: 10).",
			"- Script at the end with full Three.js logic.",
			"",
			"DO NOT wrap in markdown code blocks. Output raw HTML only.",
		)
	case models.RoleCritic:
		return "Ensure the 3D implementation is robust."
	}
	return ""
}

func chatbotBody(role models.Role, lang models.BotLanguage) string {
	python := lang == models.BotPython
	pick := func(py, js string) string {
		if python {
			return py
		}
		return js
	}

	switch role {
	case models.RoleProductOwner:
		return lines(
			"Define a Telegram Bot structure.",
			"Target Language: "+pick("Python (python-telegram-bot)", "Node.js (Telegraf)")+".",
			"1. Purpose & Utility.",
			"2. Commands (/start, /help, custom).",
			"3. User Flow.",
		)
	case models.RoleMechanic:
		return lines(
			"Define Conversation Logic.",
			"1. Menu Hierarchy (Inline Buttons vs Keyboard).",
			"2. State Machine (Scene/Conversation Wizard).",
		)
	case models.RoleInnovator:
		return lines(
			"Gamification & Engagement.",
			"1. Emojis and Tone.",
			"2. Feedback loops.",
		)
	case models.RoleTechLead:
		return lines(
			"Stack: "+pick("Python + python-telegram-bot (async)", "Node.js + Telegraf")+".",
			"1. Middleware setup.",
			"2. API structure.",
			"3. Error handling.",
		)
	case models.RoleDesigner:
		return lines(
			"Copywriting & UX.",
			"1. Message templates.",
			"2. Button text.",
		)
	case models.RoleQAEngineer:
		return lines(
			"Validation.",
			"1. Async/Await error catching.",
			"2. Token security (ENV variables).",
		)
	case models.RoleSynthesizer:
		if python {
			return lines(
				"WRITE THE FINAL CODE.",
				"Output a SINGLE valid Python file (.py).",
				"",
				"Requirements:",
				"1. Use 'python-telegram-bot' library (v20+ async).",
				"2. Include comments explaining how to run (pip install python-telegram-bot).",
				"3. Handle /start and /help.",
				"4. Implement the logic defined by the team.",
				"",
				"DO NOT wrap in markdown code blocks. Output raw Python code only.",
			)
		}
		return lines(
			"WRITE THE FINAL CODE.",
			"Output a SINGLE valid JavaScript file (Node.js).",
			"",
			"Requirements:",
			"1. Use 'telegraf' library.",
			"2. Include comments explaining how to run (npm install telegraf).",
			"3. Handle /start and /help.",
			"4. Implement the logic defined by the team.",
			"",
			"DO NOT wrap in markdown code blocks. Output raw JavaScript code only.",
		)
	}
	return "Plan the bot."
}

func refinerBody(role models.Role) string {
	switch role {
	case models.RoleProductOwner:
		return "Analyze intent."
	case models.RoleMechanic:
		return "Define structure."
	case models.RoleInnovator:
		return "Enhance vocabulary."
	case models.RoleTechLead:
		return "Add logic constraints."
	case models.RoleSynthesizer:
		return "Output the final optimized text only. No code blocks."
	}
	return "Optimize."
}
