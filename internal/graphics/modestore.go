package graphics

import (
	"fmt"
	"os"
	"strings"
)

// ModeStore persists the graphics vendor mode across reboots. The mode is
// one of "on", "off", or "on-demand"; it is read back fresh on every call
// rather than cached, since other tooling may rewrite the file.
type ModeStore interface {
	Get() (string, error)
	Set(mode string) error
}

// FileModeStore keeps the mode in a single-line text file, conventionally
// /etc/prime-discrete.
type FileModeStore struct {
	path string
}

func NewFileModeStore(path string) *FileModeStore {
	return &FileModeStore{path: path}
}

func (s *FileModeStore) Get() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read graphics mode: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileModeStore) Set(mode string) error {
	if err := os.WriteFile(s.path, []byte(mode+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to persist graphics mode: %w", err)
	}
	return nil
}
