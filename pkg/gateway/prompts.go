package gateway

import (
	"fmt"
	"strings"

	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/profile"
)

func questionsPrompt(idea string) string {
	return fmt.Sprintf(`USER IDEA: "%s"

TASK: Generate exactly %d clarifying questions to fully understand the requirements.
Focus on: Visual style, specific features, goal, and constraints.

OUTPUT FORMAT: JSON array of strings only.
Example: ["What is the primary brand color?", "Do you prefer abstract shapes or realistic models?"]`, idea, QuestionCount)
}

func improvePrompt(idea string, answers []QA) string {
	var qa strings.Builder
	for i, item := range answers {
		if i > 0 {
			qa.WriteString("\n")
		}
		fmt.Fprintf(&qa, "Q: %s\nA: %s", item.Question, item.Answer)
	}

	return fmt.Sprintf(`ORIGINAL IDEA: "%s"

USER ANSWERS:
%s

TASK: Rewrite the Original Idea into a comprehensive specification.
Include all details from the answers. Be specific and technical.`, idea, qa.String())
}

// renderTranscript formats prior entries, each under the profile of the mode
// it was produced in
func renderTranscript(entries []models.TranscriptEntry, lang models.BotLanguage, fallback models.Mode) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		mode := e.Mode
		if !mode.Valid() {
			mode = fallback
		}
		p := profile.Lookup(e.Role, mode, lang)
		parts = append(parts, fmt.Sprintf("[%s]: %s", p.Label(), e.Content))
	}
	return strings.Join(parts, "\n\n")
}

func stepPrompt(req StepRequest) string {
	p := profile.Lookup(req.Role, req.Mode, req.Lang)

	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT MODE: %s\n", req.Mode)
	if req.Mode == models.ModeChatbot {
		fmt.Fprintf(&b, "TARGET LANGUAGE: %s\n", req.Lang)
	}
	fmt.Fprintf(&b, "ORIGINAL IDEA: \"%s\"\n\n", req.Idea)
	fmt.Fprintf(&b, "TEAM CONVERSATION SO FAR:\n%s\n\n", renderTranscript(req.Transcript, req.Lang, req.Mode))
	fmt.Fprintf(&b, "YOUR ROLE: %s - %s\n", p.Name, p.Title)
	b.WriteString("YOUR TASK: Perform your specific analysis based on your system instructions.\n\n")
	b.WriteString("CRITICAL: Be specific, technical, and concise.")
	if req.Role.IsCodeWriter() && req.Mode != models.ModePromptRefiner {
		b.WriteString("\nOUTPUT ONLY RAW CODE. NO MARKDOWN.")
	}
	if len(req.Attachments) > 0 {
		b.WriteString("\n\nNOTE: The user has attached files. Use them as visual or text references.")
	}
	return b.String()
}
