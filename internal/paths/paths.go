package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppDir is the directory name medic uses under each XDG base directory.
const AppDir = "medic"

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
func ConfigHome() string {
	return xdg.ConfigHome
}

// StateHome returns the XDG state home directory.
// On Linux: ~/.local/state
// Snapshots live here: they are machine-local history, not user data.
func StateHome() string {
	return xdg.StateHome
}

// ConfigDir returns the directory medic reads its config file from.
// Returns: <ConfigHome>/medic/
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppDir)
}

// SystemConfigDir is where a host-wide config file may live.
const SystemConfigDir = "/etc/medic"

// BaselineDir returns the default directory for baseline snapshots.
// Returns: <StateHome>/medic/baselines/
func BaselineDir() string {
	return filepath.Join(StateHome(), AppDir, "baselines")
}
