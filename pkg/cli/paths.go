package cli

import (
	"os"
	"path/filepath"
)

// DefaultBaseDir is the papercast directory under the user's home.
const DefaultBaseDir = ".papercast"

// Paths provides access to the papercast directory structure.
type Paths struct {
	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths resolves the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base papercast directory (~/.papercast).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// JobsDir returns the episode job store directory (~/.papercast/jobs).
func (p *Paths) JobsDir() string {
	return filepath.Join(p.BaseDir(), "jobs")
}

// WorkDir returns the scratch directory for synthesis segments and
// downloaded sources (~/.papercast/work).
func (p *Paths) WorkDir() string {
	return filepath.Join(p.BaseDir(), "work")
}

// EnsureDirs creates the papercast directories if they don't exist.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.BaseDir(), p.JobsDir(), p.WorkDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
