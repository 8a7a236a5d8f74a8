// Package manifest handles garnet.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Manifest represents a garnet.toml runtime configuration.
type Manifest struct {
	Runtime  Runtime  `toml:"runtime"`
	Store    Store    `toml:"store"`
	Debugger Debugger `toml:"debugger"`

	// Dir is the directory containing the garnet.toml file (set at
	// load time).
	Dir string `toml:"-"`
}

// Runtime contains general runtime settings.
type Runtime struct {
	// Verbosity is the commonlog verbosity: 0 errors only, higher is
	// chattier.
	Verbosity int `toml:"verbosity"`

	// LogFile receives log output; empty means stderr.
	LogFile string `toml:"log-file"`
}

// Store configures the compiled-method store.
type Store struct {
	// Path of the SQLite database. Empty disables persistence.
	Path string `toml:"path"`
}

// Debugger configures the debugger yield.
type Debugger struct {
	// Signal raised by yield_debugger: "TRAP", "USR1", or "USR2".
	// Empty selects the default.
	Signal string `toml:"signal"`
}

// Load parses a garnet.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "garnet.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir
	return &m, nil
}

// Default returns a manifest with defaults applied, for running
// without a garnet.toml.
func Default() *Manifest {
	return &Manifest{}
}

// StorePath resolves the method-store path relative to the manifest
// directory. Empty when persistence is disabled.
func (m *Manifest) StorePath() string {
	if m.Store.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Store.Path) || m.Dir == "" {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}

// DebugSignal maps the configured signal name to a syscall.Signal.
// Zero means "use the runtime default".
func (m *Manifest) DebugSignal() syscall.Signal {
	switch strings.ToUpper(m.Debugger.Signal) {
	case "TRAP":
		return syscall.SIGTRAP
	case "USR1":
		return syscall.SIGUSR1
	case "USR2":
		return syscall.SIGUSR2
	default:
		return 0
	}
}

// ConfigureLogging applies the manifest's logging settings to
// commonlog's backend.
func (m *Manifest) ConfigureLogging() {
	var path *string
	if m.Runtime.LogFile != "" {
		p := m.Runtime.LogFile
		if !filepath.IsAbs(p) && m.Dir != "" {
			p = filepath.Join(m.Dir, p)
		}
		path = &p
	}
	commonlog.Configure(m.Runtime.Verbosity, path)
}
