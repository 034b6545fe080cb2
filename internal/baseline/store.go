package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/paths"
	"github.com/servermedic/medic/pkg/fileutil"
)

const (
	// timestampLayout names timestamped snapshots so lexical order is
	// chronological order.
	timestampLayout = "20060102_150405"

	filePrefix = "baseline_"
	fileSuffix = ".json"

	// latestName is the marker file mirroring the most recent save.
	latestName = "baseline_latest.json"
)

// ErrNotFound indicates that a named snapshot does not exist.
var ErrNotFound = errors.New("baseline not found")

// Info describes one stored snapshot for listings.
type Info struct {
	// Name is the snapshot file name.
	Name string `json:"file"`

	// Timestamp is the run time recorded in the snapshot.
	Timestamp time.Time `json:"timestamp"`

	// Summary holds the snapshot's finding counts.
	Summary check.Summary `json:"summary"`
}

// Store persists report snapshots as flat JSON files in one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. An empty dir means the default
// XDG state directory.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = paths.BaselineDir()
	}
	return &Store{dir: dir}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes report as a timestamped snapshot and overwrites the latest
// marker. Both writes are atomic renames, so a concurrent reader never
// observes a torn file. Returns the timestamped path.
func (s *Store) Save(report *check.Report) (string, error) {
	if report == nil {
		return "", errors.New("nil report")
	}
	if err := paths.EnsureDir(s.dir, 0); err != nil {
		return "", errors.Wrap(err, "creating baseline directory")
	}

	name := filePrefix + time.Now().Format(timestampLayout) + fileSuffix
	path := filepath.Join(s.dir, name)
	if err := fileutil.AtomicWriteJSON(path, report); err != nil {
		return "", errors.Wrap(err, "writing baseline")
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(s.dir, latestName), report); err != nil {
		return "", errors.Wrap(err, "writing latest baseline")
	}
	return path, nil
}

// LoadLatest returns the most recent snapshot, or (nil, nil) when none has
// been saved yet. A present but unreadable snapshot is an error.
func (s *Store) LoadLatest() (*check.Report, error) {
	report, err := s.read(filepath.Join(s.dir, latestName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

// Load returns the snapshot stored under name.
func (s *Store) Load(name string) (*check.Report, error) {
	if name == "" {
		return nil, errors.New("snapshot name is required")
	}
	report, err := s.read(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "snapshot %s", name)
		}
		return nil, err
	}
	return report, nil
}

// List returns the timestamped snapshots, newest first. The latest marker
// is not included. Snapshots that fail to parse are skipped.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, errors.Wrap(err, "reading baseline directory")
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isSnapshotName(name) {
			continue
		}
		report, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      name,
			Timestamp: report.Timestamp,
			Summary:   report.Summary,
		})
	}

	// Names embed the save time, so sorting names descending yields
	// newest first.
	slices.SortFunc(infos, func(a, b Info) int {
		return strings.Compare(b.Name, a.Name)
	})

	return infos, nil
}

// Prune removes timestamped snapshots beyond the newest keep. The latest
// marker is never touched. Returns the number of snapshots removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 1 {
		return 0, errors.New("keep must be positive")
	}

	infos, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := keep; i < len(infos); i++ {
		if err := os.Remove(filepath.Join(s.dir, infos[i].Name)); err != nil {
			return removed, errors.Wrapf(err, "removing snapshot %s", infos[i].Name)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) read(path string) (*check.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot")
	}
	var report check.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(err, "parsing snapshot %s", filepath.Base(path))
	}
	return &report, nil
}

// isSnapshotName reports whether name is a timestamped snapshot file.
func isSnapshotName(name string) bool {
	return strings.HasPrefix(name, filePrefix) &&
		strings.HasSuffix(name, fileSuffix) &&
		name != latestName
}
