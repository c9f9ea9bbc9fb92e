package models

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "website", want: ModeWebsite},
		{in: " Static-Site ", want: ModeWebsite},
		{in: "tg_bot", want: ModeChatbot},
		{in: "TELEGRAM", want: ModeChatbot},
		{in: "prompt_optimizer", want: ModePromptRefiner},
		{in: "refiner", want: ModePromptRefiner},
		{in: "", wantErr: true},
		{in: "spaceship", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBotLanguage(t *testing.T) {
	for in, want := range map[string]BotLanguage{"js": BotJavaScript, "Node": BotJavaScript, "py": BotPython, "python": BotPython} {
		got, err := ParseBotLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBotLanguage("ruby")
	assert.Error(t, err)
}

func TestModeInfo(t *testing.T) {
	assert.Equal(t, "Static Site", ModeWebsite.Info().Label)
	assert.Equal(t, "Telegram Bot", ModeChatbot.Info().Label)
	assert.Equal(t, "Prompt Refiner", ModePromptRefiner.Info().Label)
	assert.False(t, Mode("other").Valid())
	assert.Equal(t, ModeWebsite, Mode("other").Next())
}

func TestModeAndLanguageCycles(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("Next visits every mode and returns after a full cycle", prop.ForAll(
		func(i int) bool {
			start := Modes[i]
			seen := map[Mode]bool{}
			m := start
			for range Modes {
				seen[m] = true
				m = m.Next()
			}
			return m == start && len(seen) == len(Modes)
		},
		gen.IntRange(0, len(Modes)-1),
	))

	properties.Property("Toggle is an involution", prop.ForAll(
		func(i int) bool {
			l := BotLanguages[i]
			return l.Toggle() != l && l.Toggle().Toggle() == l
		},
		gen.IntRange(0, len(BotLanguages)-1),
	))

	properties.TestingRun(t)
}

func TestPipelineStateValidate(t *testing.T) {
	role := RoleTechLead

	assert.NoError(t, PipelineState{Phase: PhaseIdle}.Validate())
	assert.NoError(t, PipelineState{Phase: PhaseRunning, Running: true, CurrentRole: &role}.Validate())
	assert.NoError(t, PipelineState{Phase: PhaseFinished, Finished: true, Err: "boom"}.Validate())

	err := PipelineState{Running: true, Finished: true, CurrentRole: &role}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "finished", verr.Field)

	err = PipelineState{Running: true}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "current_role", verr.Field)

	assert.Equal(t, RoleTechLead, PipelineState{CurrentRole: &role}.CurrentRoleName())
	assert.Equal(t, Role(""), PipelineState{}.CurrentRoleName())
}

func TestBusy(t *testing.T) {
	assert.True(t, PipelineState{Phase: PhaseClarifying}.Busy())
	assert.True(t, PipelineState{Phase: PhaseRunning}.Busy())
	assert.False(t, PipelineState{Phase: PhaseFinished}.Busy())
	assert.False(t, PipelineState{Phase: PhaseIdle}.Busy())
}

func TestConstructors(t *testing.T) {
	data := []byte{1, 2, 3}
	a := NewAttachment("img.png", data, "image/png")
	data[0] = 9
	assert.Equal(t, byte(1), a.Data[0], "attachment data must be copied")
	assert.NotEmpty(t, a.ID)

	e := NewTranscriptEntry(RoleSynthesizer, "body", ModeChatbot)
	assert.NotEqual(t, NewTranscriptEntry(RoleSynthesizer, "body", ModeChatbot).ID, e.ID)
	assert.Equal(t, ModeChatbot, e.Mode)
	assert.True(t, e.Role.IsCodeWriter())
	assert.False(t, RoleCritic.IsCodeWriter())

	at := time.Unix(100, 0)
	line := NewConsoleLine(LineSuccess, "ok", at)
	assert.Equal(t, at, line.Timestamp)
	assert.Equal(t, LineSuccess, line.Kind)
}
