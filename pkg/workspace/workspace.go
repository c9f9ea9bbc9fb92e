// Package workspace holds the in-memory set of editable files a pipeline run
// produces, along with the naming rules and fence extraction that keep it in
// step with the transcript.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/syntor/forge/pkg/models"
)

var (
	// ErrFileExists is returned when creating a file whose name is taken
	ErrFileExists = errors.New("workspace: file already exists")
	// ErrInvalidName is returned for empty names or names that escape the workspace
	ErrInvalidName = errors.New("workspace: invalid file name")
)

// Workspace is an ordered collection of uniquely named virtual files with one active file
type Workspace struct {
	mu     sync.RWMutex
	files  []models.VirtualFile
	active string
}

// New creates a workspace seeded with the placeholder default file for mode
func New(mode models.Mode, lang models.BotLanguage) *Workspace {
	w := &Workspace{}
	w.Reseed(mode, lang, false)
	return w
}

// Reseed discards every file and installs the mode's default file as the only,
// active file. blank leaves its content empty instead of using the placeholder.
func (w *Workspace) Reseed(mode models.Mode, lang models.BotLanguage, blank bool) {
	name, language := DefaultFile(mode, lang)
	content := Placeholder(mode, lang)
	if blank {
		content = ""
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files = []models.VirtualFile{{Name: name, Language: language, Content: content}}
	w.active = name
}

// Create appends an empty file, inferring its language from the extension, and activates it
func (w *Workspace) Create(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	w.files = append(w.files, models.VirtualFile{Name: name, Language: LanguageFor(name)})
	w.active = name
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return nil
}

// SetActive activates the named file. Unknown names are ignored.
func (w *Workspace) SetActive(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.indexOf(name) >= 0 {
		w.active = name
	}
}

// Write replaces the named file's content and reports whether the file existed
func (w *Workspace) Write(name, content string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(name)
	if i < 0 {
		return false
	}
	w.files[i].Content = content
	return true
}

// Active returns a copy of the active file
func (w *Workspace) Active() (models.VirtualFile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(w.active)
	if i < 0 {
		return models.VirtualFile{}, false
	}
	return w.files[i], true
}

// ActiveName returns the active file's name
func (w *Workspace) ActiveName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// File returns a copy of the named file
func (w *Workspace) File(name string) (models.VirtualFile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(name)
	if i < 0 {
		return models.VirtualFile{}, false
	}
	return w.files[i], true
}

// Files returns a copy of every file in creation order
func (w *Workspace) Files() []models.VirtualFile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.VirtualFile, len(w.files))
	copy(out, w.files)
	return out
}

// Export writes every file into dir, creating it if needed, and returns the written paths
func (w *Workspace) Export(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	files := w.Files()
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return paths, fmt.Errorf("export %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Workspace) indexOf(name string) int {
	for i := range w.files {
		if w.files[i].Name == name {
			return i
		}
	}
	return -1
}
