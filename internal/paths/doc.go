// Package paths provides path resolution for medic's configuration and
// state directories.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance. On Linux, paths follow XDG conventions
// (~/.config, ~/.local/state).
//
// # Directory Layout
//
//	paths.ConfigDir()   // ~/.config/medic/        config file
//	paths.BaselineDir() // ~/.local/state/medic/baselines/  snapshots
//
// A host-wide config may also live under /etc/medic (SystemConfigDir);
// the config package adds it to the search path.
//
// # Error Handling
//
// Directory getters return paths without touching the filesystem. Use
// [EnsureDir] before writing:
//
//	if err := paths.EnsureDir(paths.BaselineDir(), 0); err != nil {
//	    return err
//	}
package paths
