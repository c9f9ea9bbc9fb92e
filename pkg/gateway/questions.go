package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/syntor/forge/pkg/workspace"
)

// QuestionCount is the number of clarification questions a round asks
const QuestionCount = 5

// DefaultAnswer stands in for a question left unanswered
const DefaultAnswer = "No specific preference."

// FallbackQuestions is used when question generation fails
var FallbackQuestions = []string{
	"What is the main goal?",
	"Who is the target audience?",
	"Any specific style preferences?",
	"Key features needed?",
	"Any specific integrations?",
}

// ParseQuestions decodes a question reply. Code fences are stripped, and an
// object holding a single list of strings is accepted as well as a bare list.
func ParseQuestions(reply string) ([]string, error) {
	text := strings.TrimSpace(workspace.Extract(strings.TrimSpace(reply)))
	if text == "" {
		return nil, ErrMalformedQuestions
	}

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var obj map[string]json.RawMessage
		if objErr := json.Unmarshal([]byte(text), &obj); objErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedQuestions, err)
		}
		list = firstStringList(obj)
	}

	out := make([]string, 0, len(list))
	for _, q := range list {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, ErrMalformedQuestions
	}
	return out, nil
}

func firstStringList(obj map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var list []string
		if err := json.Unmarshal(obj[k], &list); err == nil && len(list) > 0 {
			return list
		}
	}
	return nil
}

// NormalizeQuestions returns exactly QuestionCount questions, truncating a long
// list and padding a short one from FallbackQuestions.
func NormalizeQuestions(questions []string) []string {
	out := make([]string, 0, QuestionCount)
	seen := make(map[string]bool, QuestionCount)
	for _, q := range questions {
		if len(out) == QuestionCount {
			break
		}
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		seen[q] = true
	}
	for _, q := range FallbackQuestions {
		if len(out) == QuestionCount {
			break
		}
		if !seen[q] {
			out = append(out, q)
		}
	}
	return out
}

// PairAnswers zips questions with answers, defaulting blank or missing answers
func PairAnswers(questions, answers []string) []QA {
	out := make([]QA, len(questions))
	for i, q := range questions {
		a := ""
		if i < len(answers) {
			a = strings.TrimSpace(answers[i])
		}
		if a == "" {
			a = DefaultAnswer
		}
		out[i] = QA{Question: q, Answer: a}
	}
	return out
}
