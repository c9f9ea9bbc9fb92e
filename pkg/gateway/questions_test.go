package gateway

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []string
		wantErr bool
	}{
		{name: "bare list", reply: `["a", "b"]`, want: []string{"a", "b"}},
		{name: "fenced", reply: "```json\n[\"a\"]\n```", want: []string{"a"}},
		{name: "wrapped object", reply: `{"questions": ["x", " ", "y"]}`, want: []string{"x", "y"}},
		{name: "blanks only", reply: `["", "  "]`, wantErr: true},
		{name: "prose", reply: "no json here", wantErr: true},
		{name: "empty", reply: "", wantErr: true},
		{name: "wrong types", reply: `[1, 2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuestions(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedQuestions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeQuestions(t *testing.T) {
	assert.Equal(t, FallbackQuestions, NormalizeQuestions(nil))

	long := []string{"1", "2", "3", "4", "5", "6", "7"}
	assert.Equal(t, long[:5], NormalizeQuestions(long))

	short := NormalizeQuestions([]string{"Colors?", "What is the main goal?"})
	assert.Equal(t, []string{
		"Colors?",
		"What is the main goal?",
		"Who is the target audience?",
		"Any specific style preferences?",
		"Key features needed?",
	}, short)
}

func TestNormalizeQuestionsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("always exactly five non-blank questions", prop.ForAll(
		func(qs []string) bool {
			out := NormalizeQuestions(qs)
			if len(out) != QuestionCount {
				return false
			}
			for _, q := range out {
				if q == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}

func TestPairAnswers(t *testing.T) {
	qa := PairAnswers([]string{"a", "b", "c"}, []string{"x", "  "})
	assert.Equal(t, []QA{
		{Question: "a", Answer: "x"},
		{Question: "b", Answer: DefaultAnswer},
		{Question: "c", Answer: DefaultAnswer},
	}, qa)
}
