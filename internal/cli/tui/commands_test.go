package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCommands(t *testing.T) {
	r := NewCommandRegistryFrom()

	for _, name := range []string{"run", "mode", "lang", "attach", "skip", "reset", "file", "edit", "export", "console", "copy", "help", "quit"} {
		cmd, ok := r.GetCommand(name)
		require.True(t, ok, name)
		assert.NotEqual(t, "template", cmd.Category, name)
		assert.NotEmpty(t, cmd.Description, name)
	}

	_, ok := r.GetCommand("nope")
	assert.False(t, ok)
}

func TestFilterCommandsPutsExactMatchFirst(t *testing.T) {
	r := NewCommandRegistryFrom()

	cmds := r.FilterCommands("e")
	require.NotEmpty(t, cmds)
	for _, c := range cmds {
		assert.Equal(t, byte('e'), c.Name[0])
	}

	cmds = r.FilterCommands("EXIT")
	require.NotEmpty(t, cmds)
	assert.Equal(t, "exit", cmds[0].Name)

	assert.Empty(t, r.FilterCommands("zzz"))
}

func TestGetAllCommandsOrderedByCategory(t *testing.T) {
	r := NewCommandRegistryFrom()
	cmds := r.GetAllCommands()

	last := -1
	for _, c := range cmds {
		order := categoryOrder[c.Category]
		assert.GreaterOrEqual(t, order, last, c.Name)
		last = order
	}
}

func TestTemplatesLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landing.md"),
		[]byte("# Landing page for a product\nA landing page for {{details}} with a signup form."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.md"), []byte("A portfolio site"), 0o644))
	// built-ins are never replaced
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.md"), []byte("hijack"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewCommandRegistryFrom(dir, filepath.Join(dir, "missing"))

	landing, ok := r.GetCommand("landing")
	require.True(t, ok)
	assert.Equal(t, "template", landing.Category)
	assert.Equal(t, "Landing page for a product", landing.Description)
	assert.Equal(t, "A landing page for a coffee shop with a signup form.", landing.Expand("a coffee shop"))

	plain, ok := r.GetCommand("plain")
	require.True(t, ok)
	assert.Equal(t, "Idea template", plain.Description)
	assert.Equal(t, "A portfolio site", plain.Expand(""))
	assert.Equal(t, "A portfolio site\n\nfor a photographer", plain.Expand("  for a photographer "))

	run, _ := r.GetCommand("run")
	assert.Equal(t, "pipeline", run.Category)

	_, ok = r.GetCommand("notes")
	assert.False(t, ok)
}
