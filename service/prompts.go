package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPromptNotFound means the instruction store has no prompt mapped for
// a stage. Fatal: the run aborts before the stage executes.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptStore maps stage identifiers to instructional text files on disk.
// Contents are read-only, process-wide configuration, safe for concurrent
// reads.
type PromptStore struct {
	dir   string
	files map[string]string
}

func NewPromptStore(dir string, files map[string]string) *PromptStore {
	return &PromptStore{dir: dir, files: files}
}

// Get loads the instructional text for a stage.
func (p *PromptStore) Get(stage string) (string, error) {
	name, ok := p.files[stage]
	if !ok {
		return "", fmt.Errorf("stage %s: %w", stage, ErrPromptNotFound)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, name))
	if err != nil {
		return "", fmt.Errorf("read prompt for stage %s: %w", stage, err)
	}
	return string(data), nil
}
