package pipeline

import (
	"context"

	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/workspace"
)

// syncLocked mirrors code-writer output into the target file for mode and
// lang. A missing target is left alone. Callers hold s.mu.
func (s *Session) syncLocked(mode models.Mode, lang models.BotLanguage, content string) bool {
	name, _ := workspace.DefaultFile(mode, lang)
	if !s.workspace.Write(name, workspace.Extract(content)) {
		s.logger.Debug("sync target missing", logging.String("file", name))
		return false
	}
	s.metrics.IncrementCounter(metrics.WorkspaceSyncs.Name, metrics.Labels("mode", string(mode)))
	return true
}

// EditEntry replaces an entry's content in place. Editing the code writer's
// entry rewrites the target file exactly once; other roles never touch the
// workspace.
func (s *Session) EditEntry(id, content string) error {
	s.mu.Lock()
	i := -1
	for j := range s.transcript {
		if s.transcript[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		s.mu.Unlock()
		return ErrEntryNotFound
	}
	s.transcript[i].Content = content
	entry := s.transcript[i]
	synced := entry.Role.IsCodeWriter() && s.syncLocked(s.state.Mode, s.lang, content)
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	observer.EntryUpdated(entry)
	if synced {
		observer.WorkspaceChanged(files, active)
	}
	return nil
}

// Files returns a copy of the workspace files
func (s *Session) Files() []models.VirtualFile {
	return s.workspace.Files()
}

// ActiveFile returns a copy of the active file
func (s *Session) ActiveFile() (models.VirtualFile, bool) {
	return s.workspace.Active()
}

// CreateFile adds an empty file and makes it active
func (s *Session) CreateFile(name string) error {
	if err := s.workspace.Create(name); err != nil {
		return err
	}
	s.notifyWorkspace()
	return nil
}

// SelectFile makes the named file active. Unknown names are ignored.
func (s *Session) SelectFile(name string) {
	s.workspace.SetActive(name)
	s.notifyWorkspace()
}

// WriteFile replaces a file's content. The transcript is not touched.
func (s *Session) WriteFile(name, content string) bool {
	if !s.workspace.Write(name, content) {
		return false
	}
	s.notifyWorkspace()
	return true
}

// Export writes the workspace files into dir
func (s *Session) Export(dir string) ([]string, error) {
	paths, err := s.workspace.Export(dir)
	if err != nil {
		return paths, err
	}
	s.logger.Info("workspace exported", logging.String("dir", dir), logging.Int("files", len(paths)))
	return paths, nil
}

func (s *Session) notifyWorkspace() {
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	s.obs().WorkspaceChanged(files, active)
}

// ConsoleLines returns a copy of the console output
func (s *Session) ConsoleLines() []models.ConsoleLine {
	return s.console.Lines()
}

// RunConsole plays the simulated run for the current mode against the active file
func (s *Session) RunConsole(ctx context.Context) error {
	s.mu.Lock()
	mode, lang := s.state.Mode, s.lang
	s.mu.Unlock()

	var active *models.VirtualFile
	if f, ok := s.workspace.Active(); ok {
		active = &f
	}
	return s.console.Run(ctx, mode, lang, active)
}
