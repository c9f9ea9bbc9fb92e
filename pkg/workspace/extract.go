package workspace

import "strings"

// Fence is the code block delimiter recognised by Extract
const Fence = "```"

// Extract strips fenced-code-block wrapping from generated text.
//
// The result is the slice between the first line starting with a fence and the
// last line consisting solely of a fence, both exclusive. An unclosed fence runs
// to the end of the text. Text without a fence line comes back unchanged.
func Extract(raw string) string {
	if !strings.Contains(raw, Fence) {
		return raw
	}

	lines := strings.Split(raw, "\n")
	start := -1
	for i, l := range lines {
		if strings.HasPrefix(l, Fence) {
			start = i
			break
		}
	}
	if start == -1 {
		return raw
	}

	end := -1
	for i := len(lines) - 1; i > start; i-- {
		if strings.TrimSuffix(lines[i], "\r") == Fence {
			end = i
			break
		}
	}
	if end == -1 {
		return strings.Join(lines[start+1:], "\n")
	}
	return strings.Join(lines[start+1:end], "\n")
}
