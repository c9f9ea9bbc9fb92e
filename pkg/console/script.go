package console

import (
	"time"

	"github.com/syntor/forge/pkg/models"
)

// Step is one scripted console line. Delay is measured from the start of the run.
type Step struct {
	Delay time.Duration
	Kind  models.LineKind
	Text  string
}

var (
	javascriptScript = []Step{
		{0, models.LineCommand, "npm install telegraf"},
		{800 * time.Millisecond, models.LineSuccess, "added 15 packages in 1s"},
		{1500 * time.Millisecond, models.LineCommand, "node bot.js"},
		{2000 * time.Millisecond, models.LineInfo, "[Bot] Starting polling..."},
		{2500 * time.Millisecond, models.LineSuccess, "[Bot] Online and ready! (Simulation)"},
	}

	pythonScript = []Step{
		{0, models.LineCommand, "pip install python-telegram-bot"},
		{1000 * time.Millisecond, models.LineSuccess, "Successfully installed python-telegram-bot-20.0"},
		{1800 * time.Millisecond, models.LineCommand, "python bot.py"},
		{2500 * time.Millisecond, models.LineInfo, "INFO:telegram.ext.Application:Application started"},
		{3000 * time.Millisecond, models.LineSuccess, "Bot is polling... (Simulation Mode)"},
	}

	websiteScript = []Step{
		{0, models.LineInfo, "Live preview renders index.html directly; nothing to start."},
	}
)

// Script returns the scripted lines for a mode. Prompt-refiner runs copy to the
// clipboard instead and have no script.
func Script(mode models.Mode, lang models.BotLanguage) []Step {
	var src []Step
	switch mode {
	case models.ModeChatbot:
		src = javascriptScript
		if lang == models.BotPython {
			src = pythonScript
		}
	case models.ModeWebsite:
		src = websiteScript
	default:
		return nil
	}
	out := make([]Step, len(src))
	copy(out, src)
	return out
}
